// Package storage is the boundary to the shared, untrusted object store.
// The core only builds opaque paths and hands bytes across this interface;
// anything sensitive is encrypted before it gets here.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/gosimple/slug"
)

type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// PathForJobFile builds the store key for one job artifact:
// <orgSlug>/<studyID>/<jobID>/<kind>/<name>.
func PathForJobFile(orgSlug, studyID, jobID, kind, name string) string {
	return path.Join(orgSlug, studyID, jobID, kind, SanitizeFileName(name))
}

// SanitizeFileName slugifies the stem and keeps the extension, so webhook
// or upload supplied names cannot traverse or collide weirdly in the store.
func SanitizeFileName(name string) string {
	base := path.Base(name)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	sanitized := slug.Make(stem)
	if sanitized == "" {
		sanitized = "file"
	}
	return fmt.Sprintf("%s%s", sanitized, strings.ToLower(ext))
}
