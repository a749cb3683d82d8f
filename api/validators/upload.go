package validators

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	pkgerrors "github.com/sumo1993/medconsult-liberia-sub003/pkg/errors"
)

// Upload is a file read from a multipart form.
type Upload struct {
	Filename string
	Data     []byte
}

// IsMultipart reports whether the request carries a multipart form.
func IsMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.EqualFold(mediaType, "multipart/form-data")
}

// ParseMultipart parses the form with the body capped at maxBytes.
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pkgerrors.New(pkgerrors.CodeValidation, "upload exceeds size limit").WithDetails(map[string]any{"max_bytes": maxBytes})
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	return nil
}

// FormFile reads an optional file field from a parsed multipart form.
func FormFile(r *http.Request, field string, maxBytes int64) (*Upload, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid file field")
	}
	defer file.Close()

	if maxBytes > 0 && header.Size > maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upload exceeds size limit").WithDetails(map[string]any{"field": field, "max_bytes": maxBytes})
	}
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upload exceeds size limit").WithDetails(map[string]any{"field": field, "max_bytes": maxBytes})
	}
	return &Upload{Filename: SanitizeString(header.Filename, 255), Data: data}, nil
}

// FormString returns a trimmed form value, or nil when absent.
func FormString(r *http.Request, field string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[field]
	if !ok || len(values) == 0 {
		return nil
	}
	value := strings.TrimSpace(values[0])
	return &value
}
