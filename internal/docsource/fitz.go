package docsource

import (
	"fmt"
	"image"
	"sync"

	fitz "github.com/gen2brain/go-fitz"
)

// fitzDocument rasterizes PDF pages via MuPDF.
// go-fitz documents are not safe for concurrent use, so all calls
// into the native handle are serialized.
type fitzDocument struct {
	mu  sync.Mutex
	doc *fitz.Document
}

// newFitzDocument parses PDF bytes into a raster-capable document.
func newFitzDocument(data []byte) (*fitzDocument, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &fitzDocument{doc: doc}, nil
}

func (d *fitzDocument) PageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.NumPage()
}

func (d *fitzDocument) Page(n int) (Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n < 1 || n > d.doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range [1, %d]", n, d.doc.NumPage())
	}
	bounds, err := d.doc.Bound(n - 1)
	if err != nil {
		return nil, fmt.Errorf("page %d bounds: %w", n, err)
	}
	return &fitzPage{doc: d, index: n - 1, bounds: bounds}, nil
}

func (d *fitzDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Close()
}

type fitzPage struct {
	doc    *fitzDocument
	index  int // 0-based
	bounds image.Rectangle
}

// Size reports the page bounds at 72 DPI, which is the intrinsic size
// in points.
func (p *fitzPage) Size() (w, h float64) {
	return float64(p.bounds.Dx()), float64(p.bounds.Dy())
}

func (p *fitzPage) Render(scale float64) (*image.RGBA, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("invalid scale %g", scale)
	}
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()
	img, err := p.doc.doc.ImageDPI(p.index, 72*scale)
	if err != nil {
		return nil, fmt.Errorf("rasterize page %d: %w", p.index+1, err)
	}
	return img, nil
}

func (p *fitzPage) Text() (string, error) {
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()
	text, err := p.doc.doc.Text(p.index)
	if err != nil {
		return "", fmt.Errorf("extract page %d text: %w", p.index+1, err)
	}
	return text, nil
}
