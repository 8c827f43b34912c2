// Package media stores uploaded images and returns the public URL the site
// serves them from.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/yolodolo42/sitepilot/internal/config"
)

var (
	ErrTooLarge        = errors.New("file exceeds upload limit")
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrEmpty           = errors.New("file is empty")
)

// Allowed content types and the extension stored files get.
var allowed = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
	"video/mp4":     ".mp4",
}

// Uploader is the file/object storage collaborator.
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*Object, error)
}

// Object describes a stored file.
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Local writes uploads under Dir and serves them below BaseURL.
type Local struct {
	Dir      string
	BaseURL  string
	MaxBytes int64
}

// NewLocal creates the media directory if needed.
func NewLocal(cfg config.MediaConfig) (*Local, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("media dir not configured")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Local{Dir: cfg.Dir, BaseURL: cfg.BaseURL, MaxBytes: cfg.MaxBytes}, nil
}

// Upload sniffs the content type, enforces the size limit and stores the file
// under a random name. The client filename is only consulted for svg, which
// sniffs as text.
func (l *Local) Upload(ctx context.Context, filename string, r io.Reader) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if n == 0 {
		return nil, ErrEmpty
	}
	head = head[:n]

	contentType := detect(filename, head)
	ext, ok := allowed[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	key := uuid.NewString() + ext
	dst := filepath.Join(l.Dir, key)
	tmp := dst + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create media file: %w", err)
	}

	body := io.MultiReader(bytes.NewReader(head), r)
	limit := l.MaxBytes
	if limit > 0 {
		body = io.LimitReader(body, limit+1)
	}
	size, err := io.Copy(f, body)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && limit > 0 && size > limit {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(tmp)
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("write media file: %w", err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("save media file: %w", err)
	}

	return &Object{
		Key:         key,
		URL:         l.URL(key),
		ContentType: contentType,
		Size:        size,
	}, nil
}

// URL returns the public URL of a stored key.
func (l *Local) URL(key string) string {
	base := strings.TrimRight(l.BaseURL, "/")
	if base == "" {
		base = "/media"
	}
	if strings.Contains(base, "://") {
		return base + "/" + key
	}
	return path.Join(base, key)
}

// Handler serves stored files. Mount it at BaseURL.
func (l *Local) Handler() http.Handler {
	return http.FileServer(http.Dir(l.Dir))
}

func detect(filename string, head []byte) string {
	ct := http.DetectContentType(head)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	if ct == "text/xml" || ct == "text/plain" {
		if strings.EqualFold(filepath.Ext(filename), ".svg") && strings.Contains(string(head), "<svg") {
			return "image/svg+xml"
		}
	}
	return ct
}
