// Package assets caches decoded overlay icons as host textures keyed by
// file path. Decoding and uploading are delegated to the host.
package assets

import (
	"image"
	"sync"

	"github.com/grovetools/overlay/errors"
	"github.com/grovetools/overlay/pkg/profiling"
	"github.com/sirupsen/logrus"
)

// Texture is an opaque handle owned by the host renderer.
type Texture interface{}

// Decoder turns an icon file into pixels.
type Decoder interface {
	Decode(path string) (image.Image, error)
}

// Uploader turns pixels into a host texture and releases it again. Upload
// may be required to run on the render thread; the cache calls it from
// whichever goroutine calls Load.
type Uploader interface {
	Upload(img image.Image) (Texture, error)
	Release(tex Texture)
}

// Asset is a cached texture and the pixel size of its source image.
type Asset struct {
	Texture Texture
	Size    image.Point
}

// Cache maps icon paths to uploaded textures. Entries live until Clear.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Asset

	decoder  Decoder
	uploader Uploader
	logger   *logrus.Entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates an empty cache.
func New(decoder Decoder, uploader Uploader, opts ...Option) *Cache {
	c := &Cache{
		entries:  make(map[string]Asset),
		decoder:  decoder,
		uploader: uploader,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return c
}

// Load returns the texture for path, decoding and uploading it on first
// use. On failure it returns (nil, false) and caches nothing, so a later
// call retries.
func (c *Cache) Load(path string) (Texture, bool) {
	if path == "" {
		return nil, false
	}

	c.mu.Lock()
	if a, ok := c.entries[path]; ok {
		c.mu.Unlock()
		return a.Texture, true
	}
	c.mu.Unlock()

	timer := profiling.Start("decode")
	img, err := c.decoder.Decode(path)
	timer.Stop()
	if err != nil {
		c.logger.WithError(err).WithField("path", path).Debug("Icon decode failed")
		return nil, false
	}
	tex, err := c.uploader.Upload(img)
	if err != nil {
		err = errors.UploadFailed(path, err)
		c.logger.WithError(err).WithField("path", path).Debug("Icon upload failed")
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[path]; ok {
		// Lost a race with another loader; keep the first texture.
		c.uploader.Release(tex)
		return existing.Texture, true
	}
	c.entries[path] = Asset{Texture: tex, Size: img.Bounds().Size()}
	return tex, true
}

// Size returns the pixel size recorded for path, or the zero point if the
// path has not been loaded.
func (c *Cache) Size(path string) image.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[path].Size
}

// Len returns the number of cached assets.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Paths returns the cached icon paths in no particular order.
func (c *Cache) Paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.entries))
	for p := range c.entries {
		out = append(out, p)
	}
	return out
}

// Clear releases every texture and empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[string]Asset)
	c.mu.Unlock()

	for _, a := range entries {
		c.uploader.Release(a.Texture)
	}
	if len(entries) > 0 {
		c.logger.WithField("released", len(entries)).Debug("Asset cache cleared")
	}
}
