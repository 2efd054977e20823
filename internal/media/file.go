// Package media describes local media files and meters their transfer.
package media

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// SoftMaxVideoBytes is advisory; nothing in the upload path enforces it.
	SoftMaxVideoBytes int64 = 500 * 1024 * 1024

	mediaTypeUnknown = "application/octet-stream"
)

var ErrNoBackingFile = errors.New("media file has no backing path")

// File is a handle to a local file selected for upload.
type File struct {
	Path      string
	Name      string
	MediaType string
	Size      int64
}

// Open stats path and determines its media type from content, falling back to the extension.
func Open(path string) (File, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return File{}, fmt.Errorf("file path is required")
	}
	info, err := os.Stat(p)
	if err != nil {
		return File{}, fmt.Errorf("stat media file %s: %w", p, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("media file %s is a directory", p)
	}

	mediaType := ""
	if detected, err := mimetype.DetectFile(p); err == nil {
		mediaType = baseMediaType(detected.String())
	}
	if isGenericMediaType(mediaType) {
		if byExt := baseMediaType(mime.TypeByExtension(strings.ToLower(filepath.Ext(p)))); byExt != "" {
			mediaType = byExt
		}
	}
	if mediaType == "" {
		mediaType = mediaTypeUnknown
	}

	return File{
		Path:      p,
		Name:      filepath.Base(p),
		MediaType: mediaType,
		Size:      info.Size(),
	}, nil
}

// NewFile builds a handle without touching the filesystem.
func NewFile(name, mediaType string, size int64) File {
	return File{Name: name, MediaType: baseMediaType(mediaType), Size: size}
}

func (f File) IsVideo() bool {
	return strings.HasPrefix(f.MediaType, "video/")
}

func (f File) IsImage() bool {
	return strings.HasPrefix(f.MediaType, "image/")
}

func (f File) IsZero() bool {
	return f.Name == "" && f.Path == ""
}

// ExceedsSoftLimit reports whether the file is larger than limit (0 means SoftMaxVideoBytes).
func (f File) ExceedsSoftLimit(limit int64) bool {
	if limit <= 0 {
		limit = SoftMaxVideoBytes
	}
	return f.Size > limit
}

// Reader opens the backing file for streaming.
func (f File) Reader() (io.ReadCloser, error) {
	if strings.TrimSpace(f.Path) == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoBackingFile, f.Name)
	}
	r, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open media file %s: %w", f.Path, err)
	}
	return r, nil
}

// Same reports whether two handles refer to the same selection.
func (f File) Same(other File) bool {
	return f.Path == other.Path && f.Name == other.Name && f.Size == other.Size && f.MediaType == other.MediaType
}

func baseMediaType(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	if cut := strings.Index(v, ";"); cut >= 0 {
		v = strings.TrimSpace(v[:cut])
	}
	return v
}

func isGenericMediaType(v string) bool {
	return v == "" || v == mediaTypeUnknown || v == "text/plain"
}
