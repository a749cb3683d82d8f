package storage

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type mimeGroup string

const (
	mimeGroupImages    mimeGroup = "images"
	mimeGroupPDFs      mimeGroup = "PDFs"
	mimeGroupDocuments mimeGroup = "office documents"
	mimeGroupArchives  mimeGroup = "zip archives"
	mimeGroupText      mimeGroup = "plain text"
)

var mimeGroupTypes = map[mimeGroup][]string{
	mimeGroupImages: {"image/png", "image/jpeg", "image/webp", "image/gif"},
	mimeGroupPDFs:   {"application/pdf"},
	mimeGroupDocuments: {
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	},
	mimeGroupArchives: {"application/zip"},
	mimeGroupText:     {"text/plain"},
}

var allowedGroupsByKind = map[Kind][]mimeGroup{
	KindReceipt:    {mimeGroupImages, mimeGroupPDFs},
	KindWork:       {mimeGroupPDFs, mimeGroupDocuments, mimeGroupImages, mimeGroupArchives, mimeGroupText},
	KindFinal:      {mimeGroupPDFs, mimeGroupDocuments, mimeGroupArchives},
	KindAttachment: {mimeGroupImages, mimeGroupPDFs, mimeGroupDocuments, mimeGroupText},
}

// Sniff detects the content type of data from its leading bytes.
func Sniff(data []byte) *mimetype.MIME {
	return mimetype.Detect(data)
}

// ValidateKind checks the sniffed type against the allowlist for kind.
func ValidateKind(kind Kind, detected *mimetype.MIME) error {
	groups, ok := allowedGroupsByKind[kind]
	if !ok {
		return fmt.Errorf("unknown blob kind %q", kind)
	}
	for _, group := range groups {
		for _, allowed := range mimeGroupTypes[group] {
			if detected.Is(allowed) {
				return nil
			}
		}
	}
	return fmt.Errorf("%s uploads must be %s, got %s", kind, describeGroups(groups), detected.String())
}

func describeGroups(groups []mimeGroup) string {
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, string(g))
	}
	slices.Sort(names)
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return fmt.Sprintf("%s or %s", names[0], names[1])
	default:
		return fmt.Sprintf("%s, or %s", strings.Join(names[:len(names)-1], ", "), names[len(names)-1])
	}
}
