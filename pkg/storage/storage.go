package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Kind groups blobs by what they evidence; each kind has its own MIME allowlist.
type Kind string

const (
	KindReceipt    Kind = "receipt"
	KindWork       Kind = "work"
	KindFinal      Kind = "final"
	KindAttachment Kind = "attachment"
)

// ErrNotFound is returned when a reference does not resolve to a stored blob.
var ErrNotFound = errors.New("blob not found")

// ErrRejected wraps every failure caused by the upload itself rather than the backend.
var ErrRejected = errors.New("upload rejected")

// Object describes a freshly stored blob.
type Object struct {
	Ref         string
	ContentType string
	Size        int64
}

// Blob is a stored payload with its sniffed content type.
type Blob struct {
	Data        []byte
	ContentType string
}

// Store persists opaque payloads and hands back a reference.
type Store interface {
	Put(ctx context.Context, kind Kind, data []byte, filename string) (*Object, error)
	Get(ctx context.Context, ref string) (*Blob, error)
	Delete(ctx context.Context, ref string) error
}

// Validate rejects empty or oversized payloads and payloads whose sniffed type
// is not allowed for kind. maxBytes <= 0 disables the size cap.
func Validate(kind Kind, data []byte, filename string, maxBytes int64) (*mimetype.MIME, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload %q", ErrRejected, filename)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: %q exceeds %d bytes", ErrRejected, filename, maxBytes)
	}
	detected := Sniff(data)
	if err := ValidateKind(kind, detected); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	return detected, nil
}

// NewRef returns kind/yyyy/mm/<uuid><ext>. It never derives from the client
// supplied filename.
func NewRef(kind Kind, now time.Time, detected *mimetype.MIME) string {
	now = now.UTC()
	return path.Join(string(kind), now.Format("2006"), now.Format("01"), uuid.NewString()+detected.Extension())
}
