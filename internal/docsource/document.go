// Package docsource fetches a document from the Summit backend and
// parses it into a page-addressable in-memory representation.
package docsource

import "image"

// Document is a parsed, page-addressable document.
//
// Pages are 1-based. Implementations must be safe for use from
// multiple goroutines; a render may be in flight while page metadata
// is read.
type Document interface {
	// PageCount returns the number of pages, >= 0.
	PageCount() int

	// Page returns a handle for the given 1-based page number.
	Page(n int) (Page, error)

	// Close releases parser state and any native resources.
	Close() error
}

// Page is a transient per-page handle derived from a Document.
type Page interface {
	// Size returns the intrinsic width and height in points (scale 1).
	Size() (w, h float64)

	// Render rasterizes the page at the given scale. A scale of 1
	// produces a bitmap of the intrinsic size in pixels.
	Render(scale float64) (*image.RGBA, error)

	// Text returns the plain text content of the page.
	Text() (string, error)
}
