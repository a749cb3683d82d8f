// Package gcs stores consultation uploads in a Cloud Storage bucket through
// the JSON API.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sumo1993/medconsult-liberia-sub003/pkg/config"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/logger"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/storage"
)

const (
	apiBase        = "https://storage.googleapis.com"
	requestTimeout = 30 * time.Second
	pingTimeout    = 5 * time.Second
	maxErrorBody   = 2 << 10
)

type Store struct {
	httpClient  *http.Client
	endpoint    string
	bucket      string
	maxBytes    int64
	tokenSource *tokenSource
	now         func() time.Time
}

var _ storage.Store = (*Store)(nil)

// NewStore picks credentials (inline JSON, then a key file, then the metadata
// server) and verifies the bucket is reachable before returning.
func NewStore(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*Store, error) {
	bucket := strings.TrimSpace(cfg.GCSBucket)
	if bucket == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	client := &http.Client{Timeout: requestTimeout}

	tokens, err := credentialsFor(client, cfg)
	if err != nil {
		return nil, err
	}
	store := &Store{
		httpClient:  client,
		endpoint:    apiBase,
		bucket:      bucket,
		maxBytes:    cfg.MaxUploadBytes(),
		tokenSource: tokens,
		now:         time.Now,
	}
	if err := store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs bucket %s unreachable: %w", bucket, err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", bucket), "storage.gcs_ready")
	}
	return store, nil
}

func credentialsFor(client *http.Client, cfg config.StorageConfig) (*tokenSource, error) {
	if cfg.GCSCredentialsJSON != "" {
		return newServiceAccountTokenSource(client, cfg.GCSCredentialsJSON)
	}
	if cfg.GCSCredentialsFile != "" {
		raw, err := os.ReadFile(cfg.GCSCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		return newServiceAccountTokenSource(client, string(raw))
	}
	return newMetadataTokenSource(client), nil
}

// Put runs the same validation as the local store, then uploads in one request.
func (s *Store) Put(ctx context.Context, kind storage.Kind, data []byte, filename string) (*storage.Object, error) {
	mime, err := storage.Validate(kind, data, filename, s.maxBytes)
	if err != nil {
		return nil, err
	}
	ref := storage.NewRef(kind, s.now(), mime)
	query := url.Values{"uploadType": {"media"}, "name": {ref}}

	resp, err := s.send(ctx, http.MethodPost, s.bucketURL("/upload", "/o")+"?"+query.Encode(), mime.String(), data)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("upload", resp)
	}
	return &storage.Object{Ref: ref, ContentType: mime.String(), Size: int64(len(data))}, nil
}

func (s *Store) Get(ctx context.Context, ref string) (*storage.Blob, error) {
	target, err := s.objectURL(ref)
	if err != nil {
		return nil, err
	}
	resp, err := s.send(ctx, http.MethodGet, target+"?alt=media", "", nil)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil, storage.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("download", resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ref, err)
	}
	return &storage.Blob{Data: data, ContentType: storage.Sniff(data).String()}, nil
}

// Delete treats an already missing object as deleted.
func (s *Store) Delete(ctx context.Context, ref string) error {
	target, err := s.objectURL(ref)
	if err != nil {
		return err
	}
	resp, err := s.send(ctx, http.MethodDelete, target, "", nil)
	if err != nil {
		return err
	}
	defer closeBody(resp.Body)
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	}
	return statusError("delete", resp)
}

// Ping lists a single object, which needs the same permissions as reads.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	resp, err := s.send(ctx, http.MethodGet, s.bucketURL("", "/o")+"?maxResults=1", "", nil)
	if err != nil {
		return err
	}
	defer closeBody(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return statusError("list", resp)
	}
	return nil
}

func (s *Store) bucketURL(prefix, suffix string) string {
	return s.endpoint + prefix + "/storage/v1/b/" + url.PathEscape(s.bucket) + suffix
}

func (s *Store) objectURL(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "/") || strings.Contains(ref, "..") {
		return "", fmt.Errorf("invalid blob reference %q", ref)
	}
	return s.bucketURL("", "/o/"+url.PathEscape(ref)), nil
}

func (s *Store) send(ctx context.Context, method, target, contentType string, body []byte) (*http.Response, error) {
	token, err := s.tokenSource.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs token: %w", err)
	}
	var payload io.Reader
	if body != nil {
		payload = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gcs %s %s: %w", method, req.URL.Path, err)
	}
	return resp, nil
}

func statusError(op string, resp *http.Response) error {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(detail))
	if msg == "" {
		return fmt.Errorf("gcs %s: %s", op, resp.Status)
	}
	return fmt.Errorf("gcs %s: %s: %s", op, resp.Status, msg)
}

func closeBody(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxErrorBody))
	_ = body.Close()
}
