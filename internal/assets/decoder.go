package assets

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/grovetools/overlay/errors"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"
)

// FileDecoder reads PNG, JPEG and SVG icons from disk and returns them as
// RGBA. When Size is positive, raster icons are scaled to fit a Size×Size
// square and SVG icons are rendered at that size.
type FileDecoder struct {
	Size int
}

// Decode implements Decoder.
func (d FileDecoder) Decode(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.DecodeFailed(path, err)
	}

	var img *image.RGBA
	if strings.EqualFold(filepath.Ext(path), ".svg") {
		img, err = d.decodeSVG(data)
	} else {
		img, err = d.decodeRaster(data)
	}
	if err != nil {
		return nil, errors.DecodeFailed(path, err)
	}
	return img, nil
}

func (d FileDecoder) decodeRaster(data []byte) (*image.RGBA, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("image has no pixels")
	}

	dstSize := b.Size()
	if d.Size > 0 {
		dstSize = fit(dstSize, d.Size)
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstSize.X, dstSize.Y))
	if dstSize == b.Size() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}
	return dst, nil
}

func (d FileDecoder) decodeSVG(data []byte) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	w, h := int(icon.ViewBox.W), int(icon.ViewBox.H)
	if d.Size > 0 {
		w, h = d.Size, d.Size
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("svg has no size and no target size is set")
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	icon.SetTarget(0, 0, float64(w), float64(h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	raster := rasterx.NewDasher(w, h, scanner)
	icon.Draw(raster, 1.0)
	return img, nil
}

// fit scales size so its longer side equals max, keeping the aspect ratio.
func fit(size image.Point, max int) image.Point {
	if size.X >= size.Y {
		h := size.Y * max / size.X
		if h < 1 {
			h = 1
		}
		return image.Pt(max, h)
	}
	w := size.X * max / size.Y
	if w < 1 {
		w = 1
	}
	return image.Pt(w, max)
}
