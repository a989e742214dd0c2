package docsource

import (
	"bytes"
	"fmt"
	"image"
	"strings"
	"sync"

	pdflib "github.com/ledongthuc/pdf"
)

// pdfTextDocument is the fallback PDF backend: it extracts per-page
// plain text with ledongthuc/pdf and renders it through the text
// rasterizer. Used when MuPDF cannot open the document.
type pdfTextDocument struct {
	mu     sync.Mutex
	reader *pdflib.Reader
}

func newPDFTextDocument(data []byte) (*pdfTextDocument, error) {
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &pdfTextDocument{reader: reader}, nil
}

func (d *pdfTextDocument) PageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reader.NumPage()
}

func (d *pdfTextDocument) Page(n int) (Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n < 1 || n > d.reader.NumPage() {
		return nil, fmt.Errorf("page %d out of range [1, %d]", n, d.reader.NumPage())
	}
	return &pdfTextPage{doc: d, number: n}, nil
}

func (d *pdfTextDocument) Close() error { return nil }

type pdfTextPage struct {
	doc    *pdfTextDocument
	number int // 1-based

	layoutOnce sync.Once
	layoutErr  error
	rendered   *textPage
}

// mediaBox returns the page size in points, defaulting to US Letter
// when the box is absent or degenerate.
func (p *pdfTextPage) mediaBox() (w, h float64) {
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()
	page := p.doc.reader.Page(p.number)
	if page.V.IsNull() {
		return letterWidthPt, letterHeightPt
	}
	box := page.V.Key("MediaBox")
	if box.IsNull() || box.Len() != 4 {
		return letterWidthPt, letterHeightPt
	}
	w = box.Index(2).Float64() - box.Index(0).Float64()
	h = box.Index(3).Float64() - box.Index(1).Float64()
	if w <= 0 || h <= 0 {
		return letterWidthPt, letterHeightPt
	}
	return w, h
}

func (p *pdfTextPage) Size() (w, h float64) { return p.mediaBox() }

// layout wraps the extracted page text once; renders reuse it.
func (p *pdfTextPage) layout() (*textPage, error) {
	p.layoutOnce.Do(func() {
		text, err := p.extractText()
		if err != nil {
			p.layoutErr = err
			return
		}
		blocks, err := textBlocks(text)
		if err != nil {
			p.layoutErr = err
			return
		}
		doc, err := NewTextDocument(blocks)
		if err != nil {
			p.layoutErr = err
			return
		}
		w, h := p.mediaBox()
		// Keep only the first laid-out page; a raster fallback page
		// shows at most what fits the source page.
		first, err := doc.Page(1)
		if err != nil {
			p.layoutErr = err
			return
		}
		tp := first.(*textPage)
		p.rendered = &textPage{lines: tp.lines, w: w, h: h}
	})
	return p.rendered, p.layoutErr
}

func (p *pdfTextPage) Render(scale float64) (*image.RGBA, error) {
	tp, err := p.layout()
	if err != nil {
		return nil, fmt.Errorf("layout page %d: %w", p.number, err)
	}
	return tp.Render(scale)
}

func (p *pdfTextPage) Text() (string, error) {
	return p.extractText()
}

func (p *pdfTextPage) extractText() (string, error) {
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()
	page := p.doc.reader.Page(p.number)
	if page.V.IsNull() {
		return "", nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract page %d text: %w", p.number, err)
	}
	return strings.TrimSpace(text), nil
}
