package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"

	"notepipe/internal/domain"
)

// DefaultMaxDimension bounds the longest side of images sent to vision models.
const DefaultMaxDimension = 4096

// FromBytes wraps raw file bytes as an image of the given extension.
func FromBytes(data []byte, ext string) domain.Image {
	return domain.Image{
		Data:      data,
		MediaType: domain.ContentTypeForExtension(ext),
		Ext:       ext,
	}
}

// ForVision returns img in a form every completion provider accepts: BMP and
// TIFF are transcoded to PNG and images larger than maxDim on either side are
// scaled down. Other images are returned unchanged.
func ForVision(img domain.Image, maxDim int) (domain.Image, error) {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return domain.Image{}, fmt.Errorf("reading %s image header: %w", img.Ext, err)
	}

	oversized := cfg.Width > maxDim || cfg.Height > maxDim
	if !oversized && format != "bmp" && format != "tiff" {
		return img, nil
	}

	src, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return domain.Image{}, fmt.Errorf("decoding %s image: %w", format, err)
	}
	if oversized {
		src = scaleDown(src, maxDim)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		return domain.Image{}, fmt.Errorf("encoding png: %w", err)
	}
	return domain.Image{Data: buf.Bytes(), MediaType: "image/png", Ext: "png"}, nil
}

func scaleDown(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w >= h {
		h = h * maxDim / w
		w = maxDim
	} else {
		w = w * maxDim / h
		h = maxDim
	}
	dst := image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
