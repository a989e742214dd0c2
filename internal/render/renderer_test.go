package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"testing"

	"github.com/summitapp/viewerd/internal/docsource"
)

type stubDoc struct {
	pages     int
	w, h      float64
	renderErr error
	// renderDims overrides the raster dimensions to exercise the
	// resample path.
	renderDims *image.Point
}

func (d *stubDoc) PageCount() int { return d.pages }

func (d *stubDoc) Page(n int) (docsource.Page, error) {
	if n < 1 || n > d.pages {
		return nil, fmt.Errorf("page %d out of range", n)
	}
	return &stubPage{doc: d}, nil
}

func (d *stubDoc) Close() error { return nil }

type stubPage struct {
	doc *stubDoc
}

func (p *stubPage) Size() (w, h float64) { return p.doc.w, p.doc.h }

func (p *stubPage) Render(scale float64) (*image.RGBA, error) {
	if p.doc.renderErr != nil {
		return nil, p.doc.renderErr
	}
	if p.doc.renderDims != nil {
		return image.NewRGBA(image.Rect(0, 0, p.doc.renderDims.X, p.doc.renderDims.Y)), nil
	}
	return image.NewRGBA(image.Rect(0, 0, int(p.doc.w*scale), int(p.doc.h*scale))), nil
}

func (p *stubPage) Text() (string, error) { return "", nil }

func TestPolicy_Scale(t *testing.T) {
	tests := []struct {
		name       string
		policy     Policy
		intrinsicW float64
		targetW    float64
		want       float64
	}{
		{"fit to width", Policy{MaxScale: 2.5}, 600, 900, 1.5},
		{"capped at max", Policy{MaxScale: 2.5}, 100, 800, 2.5},
		{"capped at alternate max", Policy{MaxScale: 2.0}, 100, 800, 2.0},
		{"floored at min", Policy{MaxScale: 2.5, MinScale: 1.2}, 800, 400, 1.2},
		{"floor disabled", Policy{MaxScale: 2.5}, 800, 400, 0.5},
		{"degenerate width", Policy{MaxScale: 2.5}, 0, 800, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Scale(tt.intrinsicW, tt.targetW); got != tt.want {
				t.Errorf("Scale(%g, %g) = %g, want %g", tt.intrinsicW, tt.targetW, got, tt.want)
			}
		})
	}
}

func TestRenderer_FrameDimensions(t *testing.T) {
	doc := &stubDoc{pages: 1, w: 100, h: 150}
	r := New(Policy{MaxScale: 2.5})

	frame, err := r.Render(context.Background(), doc, 1, 200, 2)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	// scale = 200/100 = 2, dpr 2: bitmap 400x600, layout 200x300.
	if frame.PixelWidth != 400 || frame.PixelHeight != 600 {
		t.Errorf("pixel dims %dx%d, want 400x600", frame.PixelWidth, frame.PixelHeight)
	}
	if frame.DisplayWidth != 200 || frame.DisplayHeight != 300 {
		t.Errorf("display dims %dx%d, want 200x300", frame.DisplayWidth, frame.DisplayHeight)
	}
	if got := frame.Image.Bounds(); got.Dx() != 400 || got.Dy() != 600 {
		t.Errorf("image dims %v, want 400x600", got)
	}
	if frame.Scale != 2 {
		t.Errorf("scale %g, want 2", frame.Scale)
	}
}

func TestRenderer_ResamplesMismatchedRaster(t *testing.T) {
	// Backend renders at a slightly different resolution than the
	// frame requires.
	doc := &stubDoc{pages: 1, w: 100, h: 150, renderDims: &image.Point{X: 190, Y: 285}}
	r := New(Policy{MaxScale: 2.5})

	frame, err := r.Render(context.Background(), doc, 1, 200, 1)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := frame.Image.Bounds(); got.Dx() != 200 || got.Dy() != 300 {
		t.Errorf("resampled dims %v, want 200x300", got)
	}
}

func TestRenderer_ErrorKeepsLastFrame(t *testing.T) {
	good := &stubDoc{pages: 1, w: 100, h: 150}
	r := New(Policy{MaxScale: 2.5})

	frame, err := r.Render(context.Background(), good, 1, 200, 1)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	r.Commit(frame)

	bad := &stubDoc{pages: 1, w: 100, h: 150, renderErr: errors.New("raster failure")}
	_, err = r.Render(context.Background(), bad, 1, 200, 1)
	if err == nil {
		t.Fatal("expected render error")
	}
	var rerr *RenderError
	if !errors.As(err, &rerr) {
		t.Fatalf("error %T, want *RenderError", err)
	}

	if got := r.Frame(); got != frame {
		t.Error("failed render replaced the committed frame")
	}
}

func TestRenderer_UncommittedFrameNotVisible(t *testing.T) {
	doc := &stubDoc{pages: 1, w: 100, h: 150}
	r := New(Policy{MaxScale: 2.5})

	if _, err := r.Render(context.Background(), doc, 1, 200, 1); err != nil {
		t.Fatalf("render: %v", err)
	}
	if r.Frame() != nil {
		t.Error("frame visible before commit")
	}
}

func TestRenderer_DefaultPixelRatio(t *testing.T) {
	doc := &stubDoc{pages: 1, w: 100, h: 150}
	r := New(Policy{MaxScale: 2.5})

	frame, err := r.Render(context.Background(), doc, 1, 100, 0)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if frame.PixelRatio != 1 {
		t.Errorf("pixel ratio %g, want default 1", frame.PixelRatio)
	}
	if frame.PixelWidth != 100 || frame.DisplayWidth != 100 {
		t.Errorf("dims pixel=%d display=%d, want 100/100", frame.PixelWidth, frame.DisplayWidth)
	}
}
