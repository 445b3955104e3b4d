package assets

import (
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/draw"
)

// MemoryUploader keeps textures as RGBA copies in process memory. Headless
// hosts and the debug server use it; real renderers provide their own.
type MemoryUploader struct {
	mu       sync.Mutex
	live     map[*image.RGBA]struct{}
	uploads  int
	releases int
}

// NewMemoryUploader creates an empty uploader.
func NewMemoryUploader() *MemoryUploader {
	return &MemoryUploader{live: make(map[*image.RGBA]struct{})}
}

// Upload implements Uploader. The returned Texture is an *image.RGBA.
func (u *MemoryUploader) Upload(img image.Image) (Texture, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("empty image")
	}
	tex := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(tex, tex.Bounds(), img, b.Min, draw.Src)

	u.mu.Lock()
	defer u.mu.Unlock()
	u.live[tex] = struct{}{}
	u.uploads++
	return tex, nil
}

// Release implements Uploader.
func (u *MemoryUploader) Release(tex Texture) {
	rgba, ok := tex.(*image.RGBA)
	if !ok {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.live[rgba]; ok {
		delete(u.live, rgba)
		u.releases++
	}
}

// Stats returns the number of uploads, releases and live textures.
func (u *MemoryUploader) Stats() (uploads, releases, live int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.uploads, u.releases, len(u.live)
}
