package render

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/example/mapforge/internal/content"
	"github.com/example/mapforge/internal/editor"
	"github.com/example/mapforge/internal/session"
)

// maxExportSide caps either side of an exported image.
const maxExportSide = 16384

// RenderMap draws the whole of m at zoom with no editor previews. The
// overlay may be nil.
func (r *Renderer) RenderMap(ctx context.Context, m *content.Model, o *session.Overlay, zoom float64) (*image.RGBA, error) {
	if zoom <= 0 || math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		zoom = 1
	}
	w, h := m.Grid().PixelSize()
	pw, ph := int(math.Ceil(w*zoom)), int(math.Ceil(h*zoom))
	if pw <= 0 || ph <= 0 {
		return nil, fmt.Errorf("render map: empty map")
	}
	if pw > maxExportSide || ph > maxExportSide {
		return nil, fmt.Errorf("render map: %dx%d exceeds %d pixels", pw, ph, maxExportSide)
	}
	img := image.NewRGBA(image.Rect(0, 0, pw, ph))
	f := Frame{
		Model:   m,
		Zoom:    zoom,
		State:   editor.DrawState{Tool: editor.ToolPan},
		Overlay: o,
		Width:   pw,
		Height:  ph,
	}
	if err := r.Render(ctx, img, f); err != nil {
		return nil, err
	}
	return img, nil
}
