package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
}

func newStore(t *testing.T, maxBytes int64) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), maxBytes)
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC) }
	return store
}

func TestLocalStorePutGetDelete(t *testing.T) {
	store := newStore(t, 0)
	ctx := context.Background()

	obj, err := store.Put(ctx, KindReceipt, pdfBytes, "receipt.pdf")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(obj.Ref, "receipt/2026/05/"), obj.Ref)
	require.True(t, strings.HasSuffix(obj.Ref, ".pdf"), obj.Ref)
	require.Equal(t, "application/pdf", obj.ContentType)
	require.Equal(t, int64(len(pdfBytes)), obj.Size)

	blob, err := store.Get(ctx, obj.Ref)
	require.NoError(t, err)
	require.Equal(t, pdfBytes, blob.Data)
	require.Equal(t, "application/pdf", blob.ContentType)

	require.NoError(t, store.Delete(ctx, obj.Ref))
	_, err = store.Get(ctx, obj.Ref)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, store.Delete(ctx, obj.Ref))
}

func TestLocalStoreRejectsDisallowedType(t *testing.T) {
	store := newStore(t, 0)
	_, err := store.Put(context.Background(), KindReceipt, []byte("just some text"), "notes.txt")
	require.ErrorIs(t, err, ErrRejected)
	require.Contains(t, err.Error(), "receipt uploads must be")

	obj, err := store.Put(context.Background(), KindWork, []byte("just some text"), "notes.txt")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(obj.ContentType, "text/plain"))
}

func TestLocalStoreImagesAllowedForReceipts(t *testing.T) {
	store := newStore(t, 0)
	obj, err := store.Put(context.Background(), KindReceipt, pngBytes, "receipt.png")
	require.NoError(t, err)
	require.Equal(t, "image/png", obj.ContentType)
}

func TestLocalStoreSizeAndEmpty(t *testing.T) {
	store := newStore(t, 8)
	_, err := store.Put(context.Background(), KindReceipt, pdfBytes, "big.pdf")
	require.ErrorIs(t, err, ErrRejected)

	_, err = store.Put(context.Background(), KindReceipt, nil, "empty.pdf")
	require.ErrorIs(t, err, ErrRejected)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store := newStore(t, 0)
	_, err := store.Get(context.Background(), "../../etc/passwd")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)

	_, err = store.Get(context.Background(), "")
	require.Error(t, err)
}
