package assets

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/grovetools/overlay/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingDecoder struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func newCountingDecoder() *countingDecoder {
	return &countingDecoder{calls: make(map[string]int), fail: make(map[string]bool)}
}

func (d *countingDecoder) Decode(path string) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls[path]++
	if d.fail[path] {
		return nil, errors.DecodeFailed(path, fmt.Errorf("boom"))
	}
	return image.NewRGBA(image.Rect(0, 0, 16, 8)), nil
}

func (d *countingDecoder) count(path string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[path]
}

type failingUploader struct{}

func (failingUploader) Upload(image.Image) (Texture, error) { return nil, fmt.Errorf("no gpu") }
func (failingUploader) Release(Texture)                     {}

func TestCacheLoadOnce(t *testing.T) {
	dec := newCountingDecoder()
	up := NewMemoryUploader()
	c := New(dec, up)

	tex1, ok := c.Load("/icons/up.png")
	require.True(t, ok)
	tex2, ok := c.Load("/icons/up.png")
	require.True(t, ok)

	assert.Same(t, tex1.(*image.RGBA), tex2.(*image.RGBA))
	assert.Equal(t, 1, dec.count("/icons/up.png"))
	assert.Equal(t, image.Pt(16, 8), c.Size("/icons/up.png"))
	assert.Equal(t, 1, c.Len())
}

func TestCacheFailureIsNotCached(t *testing.T) {
	dec := newCountingDecoder()
	dec.fail["/icons/bad.png"] = true
	c := New(dec, NewMemoryUploader())

	tex, ok := c.Load("/icons/bad.png")
	assert.False(t, ok)
	assert.Nil(t, tex)
	assert.Zero(t, c.Len())
	assert.Equal(t, image.Point{}, c.Size("/icons/bad.png"))

	c.Load("/icons/bad.png")
	assert.Equal(t, 2, dec.count("/icons/bad.png"), "failures are retried")
}

func TestCacheUploadFailure(t *testing.T) {
	c := New(newCountingDecoder(), failingUploader{})
	_, ok := c.Load("/icons/up.png")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestCacheEmptyPath(t *testing.T) {
	dec := newCountingDecoder()
	c := New(dec, NewMemoryUploader())
	_, ok := c.Load("")
	assert.False(t, ok)
	assert.Zero(t, dec.count(""))
}

func TestCacheClearReleasesTextures(t *testing.T) {
	up := NewMemoryUploader()
	c := New(newCountingDecoder(), up)

	c.Load("/icons/a.png")
	c.Load("/icons/b.png")
	c.Clear()

	uploads, releases, live := up.Stats()
	assert.Equal(t, 2, uploads)
	assert.Equal(t, 2, releases)
	assert.Zero(t, live)
	assert.Zero(t, c.Len())
	assert.Equal(t, image.Point{}, c.Size("/icons/a.png"))

	_, ok := c.Load("/icons/a.png")
	assert.True(t, ok, "cache is usable after Clear")
}

func TestCacheConcurrentLoad(t *testing.T) {
	up := NewMemoryUploader()
	c := New(newCountingDecoder(), up)

	var wg sync.WaitGroup
	results := make([]Texture, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Load("/icons/shared.png")
		}(i)
	}
	wg.Wait()

	for _, tex := range results {
		assert.Same(t, results[0].(*image.RGBA), tex.(*image.RGBA))
	}
	_, _, live := up.Stats()
	assert.Equal(t, 1, live, "duplicate uploads from racing loaders are released")
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

const testSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24" width="24" height="24">
<rect x="2" y="2" width="20" height="20" fill="#ff0000"/>
</svg>`

func TestFileDecoder(t *testing.T) {
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "up.png")
	wide := filepath.Join(dir, "wide.png")
	svgPath := filepath.Join(dir, "mute.svg")
	junk := filepath.Join(dir, "junk.png")

	writePNG(t, pngPath, 64, 64)
	writePNG(t, wide, 80, 40)
	require.NoError(t, os.WriteFile(svgPath, []byte(testSVG), 0644))
	require.NoError(t, os.WriteFile(junk, []byte("not an image"), 0644))

	tests := []struct {
		name string
		path string
		size int
		want image.Point
	}{
		{"png native size", pngPath, 0, image.Pt(64, 64)},
		{"png scaled", pngPath, 32, image.Pt(32, 32)},
		{"png keeps aspect", wide, 40, image.Pt(40, 20)},
		{"svg viewbox size", svgPath, 0, image.Pt(24, 24)},
		{"svg target size", svgPath, 48, image.Pt(48, 48)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := FileDecoder{Size: tt.size}.Decode(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, img.Bounds().Size())
			_, isRGBA := img.(*image.RGBA)
			assert.True(t, isRGBA)
		})
	}

	t.Run("svg pixels are rendered", func(t *testing.T) {
		img, err := FileDecoder{}.Decode(svgPath)
		require.NoError(t, err)
		_, _, _, a := img.At(12, 12).RGBA()
		assert.NotZero(t, a)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := FileDecoder{}.Decode(filepath.Join(dir, "nope.png"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCodeDecodeFailed))
	})

	t.Run("corrupt file", func(t *testing.T) {
		_, err := FileDecoder{}.Decode(junk)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCodeDecodeFailed))
	})
}

func TestCacheWithFileDecoder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "volume_3.png")
	writePNG(t, path, 20, 20)

	c := New(FileDecoder{Size: 10}, NewMemoryUploader())
	tex, ok := c.Load(path)
	require.True(t, ok)
	assert.Equal(t, image.Pt(10, 10), tex.(*image.RGBA).Bounds().Size())
	assert.Equal(t, image.Pt(10, 10), c.Size(path))

	_, ok = c.Load(filepath.Join(dir, "missing.png"))
	assert.False(t, ok)
}
