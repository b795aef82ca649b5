// Package storage keeps product images in a Cloud Storage bucket.
package storage

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrImageTooLarge is returned when an upload exceeds the configured size.
	ErrImageTooLarge = errors.New("storage: image exceeds maximum size")
	// ErrImageType is returned for content types that are not images the storefront can show.
	ErrImageType = errors.New("storage: content type not allowed")
	// ErrEmptyImage is returned for zero-byte uploads.
	ErrEmptyImage = errors.New("storage: image is empty")
)

var allowedImageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// ObjectStore is the minimal blob API the image bucket needs.
type ObjectStore interface {
	Put(ctx context.Context, object, contentType string, data []byte) error
	Delete(ctx context.Context, object string) error
}

// ImagesConfig describes the bucket layout.
type ImagesConfig struct {
	Bucket        string
	Prefix        string
	PublicBaseURL string
	MaxBytes      int64
}

// Images uploads product images and maps them to public URLs.
type Images struct {
	store    ObjectStore
	cfg      ImagesConfig
	now      func() time.Time
	randomID func() string
}

// ImagesOption customises Images.
type ImagesOption func(*Images)

// WithClock overrides the clock used for object names.
func WithClock(clock func() time.Time) ImagesOption {
	return func(i *Images) {
		if clock != nil {
			i.now = clock
		}
	}
}

// WithRandomID overrides the random suffix used for object names.
func WithRandomID(fn func() string) ImagesOption {
	return func(i *Images) {
		if fn != nil {
			i.randomID = fn
		}
	}
}

// NewImages validates cfg and returns an image bucket backed by store.
func NewImages(store ObjectStore, cfg ImagesConfig, opts ...ImagesOption) (*Images, error) {
	if store == nil {
		return nil, errors.New("storage: object store is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("storage: bucket name is required")
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	if cfg.Prefix == "" {
		return nil, errors.New("storage: image prefix is required")
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "https://storage.googleapis.com"
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 5 << 20
	}
	images := &Images{store: store, cfg: cfg, now: time.Now, randomID: randomSuffix}
	for _, opt := range opts {
		if opt != nil {
			opt(images)
		}
	}
	return images, nil
}

// Upload stores the image under "<prefix>/<unixmillis>-<random>.<ext>" and returns its public URL.
func (i *Images) Upload(ctx context.Context, fileName, contentType string, body io.Reader) (string, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	fallbackExt, ok := allowedImageTypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrImageType, contentType)
	}

	data, err := io.ReadAll(io.LimitReader(body, i.cfg.MaxBytes+1))
	if err != nil {
		return "", fmt.Errorf("storage: read image: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmptyImage
	}
	if int64(len(data)) > i.cfg.MaxBytes {
		return "", ErrImageTooLarge
	}

	object := i.ObjectName(fileName, fallbackExt)
	if err := i.store.Put(ctx, object, contentType, data); err != nil {
		return "", fmt.Errorf("storage: upload %s: %w", object, err)
	}
	return i.PublicURL(object), nil
}

// Delete removes the object behind a public URL. URLs outside the image prefix are ignored.
func (i *Images) Delete(ctx context.Context, publicURL string) error {
	object, ok := i.ObjectFromURL(publicURL)
	if !ok {
		return nil
	}
	if err := i.store.Delete(ctx, object); err != nil {
		return fmt.Errorf("storage: delete %s: %w", object, err)
	}
	return nil
}

// ObjectName builds a collision-resistant object name keeping the file's extension when present.
func (i *Images) ObjectName(fileName, fallbackExt string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(path.Base(strings.ReplaceAll(fileName, "\\", "/"))), "."))
	if ext == "" || !isAlnum(ext) || len(ext) > 5 {
		ext = fallbackExt
	}
	name := strconv.FormatInt(i.now().UnixMilli(), 10) + "-" + i.randomID() + "." + ext
	return i.cfg.Prefix + "/" + name
}

// PublicURL returns the URL customers load the object from.
func (i *Images) PublicURL(object string) string {
	escaped := make([]string, 0, 4)
	for _, seg := range strings.Split(object, "/") {
		escaped = append(escaped, url.PathEscape(seg))
	}
	return i.cfg.PublicBaseURL + "/" + i.cfg.Bucket + "/" + strings.Join(escaped, "/")
}

// ObjectFromURL extracts the object name following "/<prefix>/" in a public URL.
func (i *Images) ObjectFromURL(publicURL string) (string, bool) {
	marker := "/" + i.cfg.Prefix + "/"
	idx := strings.Index(publicURL, marker)
	if idx < 0 {
		return "", false
	}
	rest := publicURL[idx+len(marker):]
	if cut := strings.IndexAny(rest, "?#"); cut >= 0 {
		rest = rest[:cut]
	}
	if unescaped, err := url.PathUnescape(rest); err == nil {
		rest = unescaped
	}
	if rest == "" {
		return "", false
	}
	return i.cfg.Prefix + "/" + rest, true
}

func isAlnum(value string) bool {
	for _, r := range value {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func randomSuffix() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return strconv.FormatUint(binary.BigEndian.Uint64(buf[:]), 36)
}
