package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore keeps blobs on the local filesystem under basePath.
type LocalStore struct {
	basePath string
	maxBytes int64
	now      func() time.Time
}

// NewLocalStore creates basePath if needed. maxBytes <= 0 disables the size cap.
func NewLocalStore(basePath string, maxBytes int64) (*LocalStore, error) {
	if strings.TrimSpace(basePath) == "" {
		basePath = "./uploads"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStore{
		basePath: basePath,
		maxBytes: maxBytes,
		now:      time.Now,
	}, nil
}

// Put validates and writes data under a reference built by NewRef.
func (s *LocalStore) Put(ctx context.Context, kind Kind, data []byte, filename string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	detected, err := Validate(kind, data, filename, s.maxBytes)
	if err != nil {
		return nil, err
	}

	ref := NewRef(kind, s.now(), detected)
	full, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return nil, fmt.Errorf("write blob: %w", err)
	}
	return &Object{Ref: ref, ContentType: detected.String(), Size: int64(len(data))}, nil
}

func (s *LocalStore) Get(ctx context.Context, ref string) (*Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return &Blob{Data: data, ContentType: Sniff(data).String()}, nil
}

func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

func (s *LocalStore) resolve(ref string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(ref))
	if clean == "/" || strings.Contains(ref, "..") {
		return "", fmt.Errorf("invalid blob reference %q", ref)
	}
	return filepath.Join(s.basePath, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
