// Package render rasterizes document pages into fixed-size frames.
package render

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/summitapp/viewerd/internal/docsource"
)

// Policy controls how a render scale is derived from the target width.
type Policy struct {
	// MaxScale caps the fit-to-width scale.
	MaxScale float64
	// MinScale, when positive, floors the scale so pages never shrink
	// below a readable size.
	MinScale float64
}

// Scale computes the render scale for a page of the given intrinsic
// width filling targetWidth pixels.
func (p Policy) Scale(intrinsicWidth, targetWidth float64) float64 {
	if intrinsicWidth <= 0 || targetWidth <= 0 {
		return 1
	}
	scale := targetWidth / intrinsicWidth
	if p.MaxScale > 0 && scale > p.MaxScale {
		scale = p.MaxScale
	}
	if p.MinScale > 0 && scale < p.MinScale {
		scale = p.MinScale
	}
	return scale
}

// RenderError is a failed page rasterization. The previous frame
// stays visible; callers log and move on.
type RenderError struct {
	Page int
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render page %d: %v", e.Page, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Frame is one completed rasterization. PixelWidth/PixelHeight are the
// bitmap dimensions (device pixels); DisplayWidth/DisplayHeight are
// the logical layout dimensions, so high-density output does not
// change layout size.
type Frame struct {
	Image         *image.RGBA
	Page          int
	Scale         float64
	PixelRatio    float64
	PixelWidth    int
	PixelHeight   int
	DisplayWidth  int
	DisplayHeight int
}

// Renderer rasterizes pages offscreen and swaps in completed frames.
// The held frame is only replaced by a successful render; errors keep
// the last good frame.
type Renderer struct {
	policy Policy

	mu    sync.Mutex
	frame *Frame
}

func New(policy Policy) *Renderer {
	return &Renderer{policy: policy}
}

// Render rasterizes pageNumber of doc at the policy scale for
// targetWidth and the given device pixel ratio. The caller is
// responsible for clamping pageNumber into the document's range.
func (r *Renderer) Render(ctx context.Context, doc docsource.Document, pageNumber, targetWidth int, pixelRatio float64) (*Frame, error) {
	page, err := doc.Page(pageNumber)
	if err != nil {
		return nil, &RenderError{Page: pageNumber, Err: err}
	}

	w, h := page.Size()
	scale := r.policy.Scale(w, float64(targetWidth))
	if pixelRatio <= 0 {
		pixelRatio = 1
	}

	pixelW := int(math.Round(w * scale * pixelRatio))
	pixelH := int(math.Round(h * scale * pixelRatio))
	if pixelW <= 0 || pixelH <= 0 {
		return nil, &RenderError{Page: pageNumber, Err: fmt.Errorf("degenerate frame %dx%d", pixelW, pixelH)}
	}

	img, err := page.Render(scale * pixelRatio)
	if err != nil {
		return nil, &RenderError{Page: pageNumber, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &RenderError{Page: pageNumber, Err: err}
	}

	// Backends may rasterize at a slightly different resolution
	// (rounding, DPI caps). Resample to the exact frame dimensions.
	if img.Bounds().Dx() != pixelW || img.Bounds().Dy() != pixelH {
		dst := image.NewRGBA(image.Rect(0, 0, pixelW, pixelH))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		img = dst
	}

	frame := &Frame{
		Image:         img,
		Page:          pageNumber,
		Scale:         scale,
		PixelRatio:    pixelRatio,
		PixelWidth:    pixelW,
		PixelHeight:   pixelH,
		DisplayWidth:  int(math.Round(w * scale)),
		DisplayHeight: int(math.Round(h * scale)),
	}

	return frame, nil
}

// Commit installs a completed frame as the visible surface. Callers
// decide whether a finished render is still current before committing;
// a superseded frame is simply never committed, so the surface always
// shows the last good current-page raster.
func (r *Renderer) Commit(frame *Frame) {
	r.mu.Lock()
	r.frame = frame
	r.mu.Unlock()
}

// Frame returns the last committed frame, or nil.
func (r *Renderer) Frame() *Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame
}
