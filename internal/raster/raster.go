package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"notepipe/internal/domain"
	"notepipe/internal/imaging"
)

// ErrNoPageImage is returned when the first page carries no embedded raster image.
var ErrNoPageImage = errors.New("first page has no embedded image")

// PageRenderer renders the first page of a PDF document to an image.
type PageRenderer interface {
	RenderFirstPage(ctx context.Context, pdf []byte) (domain.Image, error)
}

// PDFRasterizer implements port.Rasterizer. The first page is rendered by the
// configured PageRenderer; when rendering is unavailable or fails, the largest
// image embedded in the page is used instead, which covers scanner PDFs.
type PDFRasterizer struct {
	renderer PageRenderer
	conf     *model.Configuration
	logger   *zap.Logger
}

// NewPDFRasterizer creates a rasterizer with relaxed PDF validation. A nil
// renderer limits it to embedded page images.
func NewPDFRasterizer(renderer PageRenderer, logger *zap.Logger) *PDFRasterizer {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFRasterizer{renderer: renderer, conf: conf, logger: logger}
}

func (r *PDFRasterizer) FirstPageImage(ctx context.Context, pdf []byte) (domain.Image, error) {
	if err := ctx.Err(); err != nil {
		return domain.Image{}, err
	}

	var renderErr error
	if r.renderer != nil {
		img, err := r.renderer.RenderFirstPage(ctx, pdf)
		if err == nil {
			return img, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Image{}, ctxErr
		}
		renderErr = err
		r.logger.Warn("pdf page render failed, trying embedded image", zap.Error(err))
	}

	img, err := r.embeddedImage(pdf)
	if err != nil && renderErr != nil {
		return domain.Image{}, fmt.Errorf("rendering first page: %w; %w", renderErr, err)
	}
	return img, err
}

func (r *PDFRasterizer) embeddedImage(pdf []byte) (domain.Image, error) {
	pages, err := api.ExtractImagesRaw(bytes.NewReader(pdf), []string{"1"}, r.conf)
	if err != nil {
		return domain.Image{}, fmt.Errorf("extracting images from pdf: %w", err)
	}

	var best *model.Image
	for _, images := range pages {
		for objNr := range images {
			img := images[objNr]
			if img.Thumb || img.IsImgMask {
				continue
			}
			if best == nil || img.Width*img.Height > best.Width*best.Height {
				best = &img
			}
		}
	}
	if best == nil {
		return domain.Image{}, ErrNoPageImage
	}

	data, err := io.ReadAll(best)
	if err != nil {
		return domain.Image{}, fmt.Errorf("reading page image: %w", err)
	}

	ext, ok := fileTypeExt[best.FileType]
	if !ok {
		return domain.Image{}, fmt.Errorf("unsupported page image type %q", best.FileType)
	}

	r.logger.Debug("pdf page image extracted",
		zap.String("type", ext),
		zap.Int("width", best.Width),
		zap.Int("height", best.Height))

	img := imaging.FromBytes(data, ext)
	if ext == "tif" {
		// Published next to the document, so store it in a format note apps display.
		return imaging.ForVision(img, 0)
	}
	return img, nil
}

// fileTypeExt maps pdfcpu image file types to the extensions the pipeline accepts.
var fileTypeExt = map[string]string{
	"jpg": "jpg",
	"png": "png",
	"tif": "tif",
}
