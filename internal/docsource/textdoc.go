package docsource

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// Text documents are laid out on US-Letter pages in points, matching
// the coordinate space PDF backends report.
const (
	letterWidthPt  = 612.0
	letterHeightPt = 792.0
	pageMarginPt   = 72.0
	bodySizePt     = 12.0
	leadingPt      = 16.0
)

var (
	fontOnce    sync.Once
	fontErr     error
	regularFont *sfnt.Font
	boldFont    *sfnt.Font
)

func loadFonts() (*sfnt.Font, *sfnt.Font, error) {
	fontOnce.Do(func() {
		regularFont, fontErr = opentype.Parse(goregular.TTF)
		if fontErr != nil {
			return
		}
		boldFont, fontErr = opentype.Parse(gobold.TTF)
	})
	return regularFont, boldFont, fontErr
}

type styledLine struct {
	text string
	bold bool
}

// TextDocument renders reflowed text content as fixed pages.
// Line breaks are computed once at scale 1; rendering at other scales
// reuses them with a proportionally sized face.
type TextDocument struct {
	pages [][]styledLine
}

// NewTextDocument lays out blocks into pages.
func NewTextDocument(blocks []Block) (*TextDocument, error) {
	regular, bold, err := loadFonts()
	if err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}
	regularFace, err := opentype.NewFace(regular, &opentype.FaceOptions{
		Size: bodySizePt, DPI: 72, Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("create face: %w", err)
	}
	defer regularFace.Close()
	boldFace, err := opentype.NewFace(bold, &opentype.FaceOptions{
		Size: bodySizePt, DPI: 72, Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("create face: %w", err)
	}
	defer boldFace.Close()

	maxWidth := fixed.I(int(letterWidthPt - 2*pageMarginPt))

	var lines []styledLine
	for _, b := range blocks {
		bold := b.Level > 0
		face := regularFace
		if bold {
			face = boldFace
		}
		// Blank line between blocks.
		if len(lines) > 0 {
			lines = append(lines, styledLine{})
		}
		for _, para := range strings.Split(b.Text, "\n") {
			wrapped := wrapLine(para, face, maxWidth)
			for _, l := range wrapped {
				lines = append(lines, styledLine{text: l, bold: bold})
			}
		}
	}

	linesPerPage := int(math.Floor((letterHeightPt - 2*pageMarginPt) / leadingPt))
	var pages [][]styledLine
	for start := 0; start < len(lines); start += linesPerPage {
		end := min(start+linesPerPage, len(lines))
		pages = append(pages, lines[start:end])
	}
	if len(pages) == 0 {
		pages = [][]styledLine{{}}
	}

	return &TextDocument{pages: pages}, nil
}

// wrapLine breaks a single paragraph line into lines that fit maxWidth.
func wrapLine(s string, face font.Face, maxWidth fixed.Int26_6) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}
	var out []string
	current := words[0]
	for _, w := range words[1:] {
		candidate := current + " " + w
		if font.MeasureString(face, candidate) > maxWidth {
			out = append(out, current)
			current = w
		} else {
			current = candidate
		}
	}
	return append(out, current)
}

func (d *TextDocument) PageCount() int { return len(d.pages) }

func (d *TextDocument) Page(n int) (Page, error) {
	if n < 1 || n > len(d.pages) {
		return nil, fmt.Errorf("page %d out of range [1, %d]", n, len(d.pages))
	}
	return &textPage{lines: d.pages[n-1], w: letterWidthPt, h: letterHeightPt}, nil
}

func (d *TextDocument) Close() error { return nil }

type textPage struct {
	lines []styledLine
	w, h  float64
}

func (p *textPage) Size() (w, h float64) { return p.w, p.h }

func (p *textPage) Render(scale float64) (*image.RGBA, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("invalid scale %g", scale)
	}
	regular, bold, err := loadFonts()
	if err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}
	regularFace, err := opentype.NewFace(regular, &opentype.FaceOptions{
		Size: bodySizePt, DPI: 72 * scale, Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("create face: %w", err)
	}
	defer regularFace.Close()
	boldFace, err := opentype.NewFace(bold, &opentype.FaceOptions{
		Size: bodySizePt, DPI: 72 * scale, Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("create face: %w", err)
	}
	defer boldFace.Close()

	w := int(math.Round(p.w * scale))
	h := int(math.Round(p.h * scale))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	ascent := regularFace.Metrics().Ascent
	x := fixed.Int26_6(pageMarginPt * scale * 64)
	for i, line := range p.lines {
		if line.text == "" {
			continue
		}
		face := regularFace
		if line.bold {
			face = boldFace
		}
		y := fixed.Int26_6((pageMarginPt+float64(i)*leadingPt)*scale*64) + ascent
		d := font.Drawer{
			Dst:  img,
			Src:  image.Black,
			Face: face,
			Dot:  fixed.Point26_6{X: x, Y: y},
		}
		d.DrawString(line.text)
	}
	return img, nil
}

func (p *textPage) Text() (string, error) {
	var buf strings.Builder
	for _, line := range p.lines {
		buf.WriteString(line.text)
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}
