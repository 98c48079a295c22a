// Package pdf provides read-only access to the text and geometry of PDF
// documents, and the locator used to verify literal excerpts against a page.
package pdf

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

func init() {
	// Load .env file from the current directory
	_ = godotenv.Load()
	if key := os.Getenv("UNIDOC_LICENSE_KEY"); key != "" {
		if err := license.SetMeteredKey(key); err != nil {
			fmt.Printf("ERROR: Failed to set Unidoc license key: %v. PDF processing will fail.\n", err)
		}
	}
}

// Rect is an axis-aligned rectangle in page coordinates.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Mark is a single extracted text fragment with its offset into the page text
// and its bounding box.
type Mark struct {
	Offset int
	Text   string
	BBox   Rect
}

// Block is a contiguous span of page text (roughly a paragraph) with its
// bounding box.
type Block struct {
	Text string
	BBox Rect
}

// Page holds the extracted text and geometry of one document page.
// Number is 0-indexed; callers add 1 when reporting pages to users.
type Page struct {
	Number int
	Text   string
	Marks  []Mark
	Blocks []Block
}

// Document is the extracted content of a PDF file.
type Document struct {
	Path  string
	Pages []Page
}

// Open reads a PDF file and extracts per-page text, marks, and blocks.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	reader, err := model.NewPdfReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf: %w", err)
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}

	doc := &Document{Path: path, Pages: make([]Page, 0, numPages)}
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			return nil, fmt.Errorf("failed to get page %d: %w", i, err)
		}

		ex, err := extractor.New(page)
		if err != nil {
			return nil, fmt.Errorf("failed to create extractor for page %d: %w", i, err)
		}

		pageText, _, _, err := ex.ExtractPageText()
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}

		text := pageText.Text()
		marks := make([]Mark, 0)
		for _, tm := range pageText.Marks().Elements() {
			if tm.Meta {
				continue
			}
			marks = append(marks, Mark{
				Offset: tm.Offset,
				Text:   tm.Text,
				BBox: Rect{
					X: tm.BBox.Llx,
					Y: tm.BBox.Lly,
					W: tm.BBox.Urx - tm.BBox.Llx,
					H: tm.BBox.Ury - tm.BBox.Lly,
				},
			})
		}

		p := Page{Number: i - 1, Text: text, Marks: marks}
		p.Blocks = blocksFromText(text, marks)
		doc.Pages = append(doc.Pages, p)
	}

	return doc, nil
}

// blocksFromText splits page text into paragraph blocks (separated by blank
// lines) and derives each block's bounding box from the marks covering its
// offset range.
func blocksFromText(text string, marks []Mark) []Block {
	var blocks []Block
	offset := 0
	for _, para := range strings.Split(text, "\n\n") {
		trimmed := strings.TrimSpace(para)
		if trimmed != "" {
			start := offset + strings.Index(para, trimmed)
			end := start + len(trimmed)
			blocks = append(blocks, Block{
				Text: trimmed,
				BBox: unionBBox(marks, start, end),
			})
		}
		offset += len(para) + 2 // account for the "\n\n" separator
	}
	return blocks
}

// unionBBox returns the union of the bounding boxes of all marks whose offset
// falls in [start, end).
func unionBBox(marks []Mark, start, end int) Rect {
	var (
		found                  bool
		minX, minY, maxX, maxY float64
	)
	for _, m := range marks {
		if m.Offset < start || m.Offset >= end {
			continue
		}
		if !found {
			minX, minY = m.BBox.X, m.BBox.Y
			maxX, maxY = m.BBox.X+m.BBox.W, m.BBox.Y+m.BBox.H
			found = true
			continue
		}
		minX = min(minX, m.BBox.X)
		minY = min(minY, m.BBox.Y)
		maxX = max(maxX, m.BBox.X+m.BBox.W)
		maxY = max(maxY, m.BBox.Y+m.BBox.H)
	}
	if !found {
		return Rect{}
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}
