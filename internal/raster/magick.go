package raster

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JaimeStill/document-context/pkg/config"
	"github.com/JaimeStill/document-context/pkg/document"
	dcimage "github.com/JaimeStill/document-context/pkg/image"

	"notepipe/internal/domain"
	"notepipe/internal/imaging"
)

// DefaultDPI is the render resolution used when none is configured.
const DefaultDPI = 200

// MagickRenderer renders PDF pages to PNG through ImageMagick, so vector pages
// such as tablet handwriting exports produce an image too.
type MagickRenderer struct {
	cfg config.ImageConfig
}

func NewMagickRenderer(dpi int) *MagickRenderer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &MagickRenderer{cfg: config.ImageConfig{
		Format:  "png",
		DPI:     dpi,
		Options: map[string]any{"background": "white"},
	}}
}

func (m *MagickRenderer) RenderFirstPage(ctx context.Context, pdf []byte) (domain.Image, error) {
	if err := ctx.Err(); err != nil {
		return domain.Image{}, err
	}

	dir, err := os.MkdirTemp("", "notepipe-pdf-*")
	if err != nil {
		return domain.Image{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	pdfPath := filepath.Join(dir, "source.pdf")
	if err := os.WriteFile(pdfPath, pdf, 0600); err != nil {
		return domain.Image{}, fmt.Errorf("write pdf: %w", err)
	}

	pdfDoc, err := document.OpenPDF(pdfPath)
	if err != nil {
		return domain.Image{}, fmt.Errorf("open pdf: %w", err)
	}
	defer pdfDoc.Close()

	page, err := pdfDoc.ExtractPage(1)
	if err != nil {
		return domain.Image{}, fmt.Errorf("extract page 1: %w", err)
	}

	renderer, err := dcimage.NewImageMagickRenderer(m.cfg)
	if err != nil {
		return domain.Image{}, fmt.Errorf("create renderer: %w", err)
	}

	data, err := page.ToImage(renderer, nil)
	if err != nil {
		return domain.Image{}, fmt.Errorf("render page 1: %w", err)
	}
	return imaging.FromBytes(data, "png"), nil
}
