package pdf

import (
	"strings"
	"unicode"
)

// Locate reports whether excerpt appears on page and returns one rectangle per
// rendered line of the match. The search tolerates case differences, repeated
// whitespace, and hyphenation breaks inserted at line wraps. When the full
// excerpt cannot be found it retries with the excerpt trimmed after its last
// period, then after its last space, mirroring how chunking breaks text at
// sentence and space boundaries. A miss returns (nil, false) and is not an
// error.
func Locate(page Page, excerpt string) ([]Rect, bool) {
	for _, candidate := range searchLadder(excerpt) {
		if rects, ok := locateExact(page, candidate); ok {
			return rects, true
		}
	}
	return nil, false
}

// FindInDocument tries Locate on every page in order and returns the 0-indexed
// page number of the first match.
func FindInDocument(doc *Document, excerpt string) (int, []Rect, bool) {
	for _, page := range doc.Pages {
		if rects, ok := Locate(page, excerpt); ok {
			return page.Number, rects, true
		}
	}
	return 0, nil, false
}

// searchLadder returns the progressively shortened variants of excerpt to try:
// the full excerpt, the excerpt cut after its last period, and the excerpt cut
// after its last space.
func searchLadder(excerpt string) []string {
	candidates := []string{excerpt}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		for _, existing := range candidates {
			if existing == s {
				return
			}
		}
		candidates = append(candidates, s)
	}
	if idx := strings.LastIndex(excerpt, "."); idx > 0 {
		add(excerpt[:idx+1])
	}
	if idx := strings.LastIndex(excerpt, " "); idx > 0 {
		add(excerpt[:idx])
	}
	return candidates
}

// locateExact searches for a single candidate string on the page after
// normalizing both sides, then maps the normalized match back to original
// text offsets to recover geometry from the page's marks.
func locateExact(page Page, candidate string) ([]Rect, bool) {
	norm, starts, ends := normalizeWithMap(page.Text)
	query := normalizeQuery(candidate)
	if query == "" {
		return nil, false
	}

	byteIdx := strings.Index(string(norm), query)
	if byteIdx < 0 {
		return nil, false
	}

	runeIdx := len([]rune(string(norm)[:byteIdx]))
	queryRunes := len([]rune(query))
	last := runeIdx + queryRunes - 1
	if last >= len(starts) {
		return nil, false
	}

	origStart := starts[runeIdx]
	origEnd := ends[last]
	return markRects(page.Marks, origStart, origEnd), true
}

// normalizeWithMap lowercases text, removes hyphenation breaks ("-\n"), and
// collapses whitespace runs to single spaces. It returns the normalized runes
// along with, per normalized rune, the byte range of the original text it was
// derived from.
func normalizeWithMap(text string) ([]rune, []int, []int) {
	var (
		norm   []rune
		starts []int
		ends   []int
	)
	runes := []rune(text)
	byteOff := 0
	inSpace := false
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		size := len(string(r))

		// Hyphenation break: a hyphen immediately before a newline joins the
		// two word halves.
		if r == '-' && i+1 < len(runes) && runes[i+1] == '\n' {
			byteOff += size + 1
			i++
			continue
		}

		if unicode.IsSpace(r) {
			if !inSpace && len(norm) > 0 {
				norm = append(norm, ' ')
				starts = append(starts, byteOff)
				ends = append(ends, byteOff+size)
				inSpace = true
			}
			byteOff += size
			continue
		}

		inSpace = false
		lower := unicode.ToLower(r)
		norm = append(norm, lower)
		starts = append(starts, byteOff)
		ends = append(ends, byteOff+size)
		byteOff += size
	}

	// Drop a trailing collapsed space so matches can end at the text's end.
	if len(norm) > 0 && norm[len(norm)-1] == ' ' {
		norm = norm[:len(norm)-1]
		starts = starts[:len(starts)-1]
		ends = ends[:len(ends)-1]
	}
	return norm, starts, ends
}

// normalizeQuery applies the same normalization as normalizeWithMap without
// tracking offsets.
func normalizeQuery(s string) string {
	norm, _, _ := normalizeWithMap(s)
	return strings.TrimSpace(string(norm))
}

// markRects groups the marks overlapping [origStart, origEnd) into rendered
// lines and returns one bounding rectangle per line.
func markRects(marks []Mark, origStart, origEnd int) []Rect {
	var matched []Mark
	for _, m := range marks {
		if m.Offset >= origStart && m.Offset < origEnd {
			matched = append(matched, m)
		}
	}
	if len(matched) == 0 {
		return []Rect{}
	}

	var rects []Rect
	current := matched[0].BBox
	for _, m := range matched[1:] {
		if sameLine(current, m.BBox) {
			current = union(current, m.BBox)
			continue
		}
		rects = append(rects, current)
		current = m.BBox
	}
	rects = append(rects, current)
	return rects
}

// sameLine reports whether two boxes sit on the same rendered line, judged by
// vertical overlap.
func sameLine(a, b Rect) bool {
	top := min(a.Y+a.H, b.Y+b.H)
	bottom := max(a.Y, b.Y)
	return top > bottom
}

func union(a, b Rect) Rect {
	minX := min(a.X, b.X)
	minY := min(a.Y, b.Y)
	maxX := max(a.X+a.W, b.X+b.W)
	maxY := max(a.Y+a.H, b.Y+b.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}
