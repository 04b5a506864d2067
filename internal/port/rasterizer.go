package port

import (
	"context"

	"notepipe/internal/domain"
)

// Rasterizer reduces a PDF document to the image of its first page.
type Rasterizer interface {
	FirstPageImage(ctx context.Context, pdf []byte) (domain.Image, error)
}
