// Package raster renders PDF documents to per-page PNG images.
//
// Rendering is lazy: Open parses the document up front (so malformed bytes
// fail before any page is produced), and Next renders one page at a time in
// document order. A consumer that stops early never pays for the remaining
// pages, which keeps memory bounded for large documents.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"io"

	"github.com/gen2brain/go-fitz"
)

// ErrRasterize indicates the input could not be parsed as a valid PDF.
// It aborts the whole document: page numbering integrity depends on a
// successful parse of the full document, so no page is ever skipped.
var ErrRasterize = errors.New("rasterize: invalid document")

// Page is one rendered document page.
type Page struct {
	// Number is 1-based and matches the page's position in the document.
	Number int

	// PNG is the lossless single-frame encoding of the rendered page.
	PNG []byte

	// Width and Height are the raster dimensions in pixels.
	Width  int
	Height int
}

// Document is a finite lazy sequence of rendered pages.
type Document struct {
	doc   *fitz.Document
	dpi   int
	pages int
	next  int
}

// Open parses a PDF from memory and prepares it for rendering at the given
// DPI. DPI is required deployment configuration, not a per-call knob: the
// render scale is dpi/72 against the document's native point size and feature
// extraction quality depends on it being stable.
//
// Returns an error wrapping ErrRasterize if the bytes are not a parseable PDF.
func Open(data []byte, dpi int) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrRasterize)
	}
	if dpi <= 0 {
		return nil, fmt.Errorf("rasterize: dpi must be positive, got %d", dpi)
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterize, err)
	}

	return &Document{
		doc:   doc,
		dpi:   dpi,
		pages: doc.NumPage(),
		next:  1,
	}, nil
}

// PageCount reports the number of physical pages in the document.
func (d *Document) PageCount() int {
	return d.pages
}

// Next renders and returns the next page. Pages come back strictly in order
// 1..N with no gaps or repeats; io.EOF marks the end of the sequence.
func (d *Document) Next() (*Page, error) {
	if d.next > d.pages {
		return nil, io.EOF
	}

	number := d.next
	img, err := d.doc.ImageDPI(number-1, float64(d.dpi))
	if err != nil {
		return nil, fmt.Errorf("%w: rendering page %d: %v", ErrRasterize, number, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("rasterize: encoding page %d: %w", number, err)
	}

	bounds := img.Bounds()
	d.next++

	return &Page{
		Number: number,
		PNG:    buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// Close releases the underlying document resources.
func (d *Document) Close() error {
	if d.doc == nil {
		return nil
	}
	err := d.doc.Close()
	d.doc = nil
	return err
}
