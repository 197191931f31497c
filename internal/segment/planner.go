// Package segment plans how a document is divided into generator-sized
// units. Small documents become a single segment; large ones are split at
// sentence boundaries, except that a detected component-table region is
// always kept whole in one segment regardless of size.
package segment

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/veridian-labs/docextract/internal/config"
	"github.com/veridian-labs/docextract/internal/model"
)

var (
	// ErrEmptyDocument is returned when the selected pages carry no text.
	ErrEmptyDocument = eris.New("segment: document has no extractable text")
	// ErrNoPagesSelected is returned when an explicit page selection
	// matches none of the document's pages.
	ErrNoPagesSelected = eris.New("segment: no selected pages matched the document")
)

// backtrackWindow bounds how far the generic splitter searches backward for
// a sentence terminator before giving up and cutting at the raw budget.
const backtrackWindow = 1000

// ingredientKeywords mark the start of a composition/ingredient table
// region, across the languages the source documents arrive in.
var ingredientKeywords = []string{"inci", "composizione", "ingredient", "成分"}

// pageSpan records which byte range of the concatenated text one page
// contributed, for best-effort source-page attribution.
type pageSpan struct {
	number int
	start  int
	end    int
}

// Planner decides extraction mode and splits oversized documents.
type Planner struct {
	Providers config.ProviderConfig
}

// Plan filters pages, concatenates them with page-boundary markers, and
// returns the ordered segments for one generator pass. Provider identity is
// threaded in per call; the planner holds no per-document state.
func (p Planner) Plan(store *model.PageStore, providerID string, selected []int) ([]model.Segment, error) {
	pages := store.Pages()
	if len(selected) > 0 {
		pages = store.Select(selected)
		if len(pages) == 0 {
			return nil, eris.Wrapf(ErrNoPagesSelected, "selection %v", selected)
		}
	}

	fullText, spans := concatenate(pages)
	if strings.TrimSpace(fullText) == "" {
		return nil, ErrEmptyDocument
	}

	threshold := p.Providers.Threshold(providerID)
	if len(fullText) <= threshold {
		return []model.Segment{{
			Ordinal:     1,
			SourcePages: pagesIn(spans, 0, len(fullText)),
			Text:        fullText,
		}}, nil
	}

	zap.L().Info("segment: document exceeds provider budget, splitting",
		zap.String("provider", providerID),
		zap.Int("chars", len(fullText)),
		zap.Int("threshold", threshold),
	)

	var chunks []chunk
	if start, end, ok := findIngredientRegion(fullText); ok {
		zap.L().Info("segment: preserving component table region",
			zap.Int("start", start),
			zap.Int("end", end),
		)
		chunks = append(chunks, splitGeneric(fullText, 0, start, threshold)...)
		chunks = append(chunks, chunk{start: start, end: end})
		chunks = append(chunks, splitGeneric(fullText, end, len(fullText), threshold)...)
	} else {
		chunks = splitGeneric(fullText, 0, len(fullText), threshold)
	}

	segments := make([]model.Segment, 0, len(chunks))
	for _, c := range chunks {
		text := strings.TrimSpace(fullText[c.start:c.end])
		if text == "" {
			continue
		}
		segments = append(segments, model.Segment{
			Ordinal:     len(segments) + 1,
			SourcePages: pagesIn(spans, c.start, c.end),
			Text:        text,
		})
	}
	if len(segments) == 0 {
		return nil, ErrEmptyDocument
	}
	return segments, nil
}

// chunk is a half-open byte range into the concatenated text.
type chunk struct {
	start int
	end   int
}

// concatenate joins page text in page order with boundary markers and
// records each page's byte span for attribution.
func concatenate(pages []model.Page) (string, []pageSpan) {
	var b strings.Builder
	spans := make([]pageSpan, 0, len(pages))
	for _, page := range pages {
		start := b.Len()
		fmt.Fprintf(&b, "=== Page %d ===\n", page.Number)
		b.WriteString(page.Render())
		b.WriteString("\n\n")
		spans = append(spans, pageSpan{number: page.Number, start: start, end: b.Len()})
	}
	return b.String(), spans
}

// pagesIn returns the page numbers whose spans overlap [start, end).
func pagesIn(spans []pageSpan, start, end int) []int {
	var out []int
	for _, s := range spans {
		if s.start < end && s.end > start {
			out = append(out, s.number)
		}
	}
	return out
}

// findIngredientRegion scans line-by-line for the first composition-table
// header and returns the byte range from that line to the next blank line or
// top-level section header. The region is never subdivided.
func findIngredientRegion(text string) (int, int, bool) {
	offset := 0
	start := -1
	for _, line := range strings.SplitAfter(text, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)

		if start < 0 {
			for _, kw := range ingredientKeywords {
				if strings.Contains(lower, kw) {
					start = offset
					break
				}
			}
		} else if trimmed == "" || isSectionHeader(trimmed) {
			return start, offset, true
		}
		offset += len(line)
	}
	if start >= 0 {
		return start, len(text), true
	}
	return 0, 0, false
}

// isSectionHeader reports whether a line opens a new top-level document
// section, which terminates a component-table region.
func isSectionHeader(line string) bool {
	return strings.HasPrefix(line, "PIF:") ||
		strings.HasPrefix(line, "PARTE") ||
		strings.HasPrefix(line, "PART ") ||
		strings.HasPrefix(line, "SECTION ")
}

// splitGeneric greedily cuts [start, end) into budget-sized chunks,
// backtracking within a bounded window to the nearest sentence terminator or
// line break so sentences are not severed mid-way.
func splitGeneric(text string, start, end, budget int) []chunk {
	var chunks []chunk
	pos := start
	for pos < end {
		cut := pos + budget
		if cut >= end {
			cut = end
		} else {
			low := cut - backtrackWindow
			if low < pos {
				low = pos
			}
			snapped := false
			for i := cut; i > low; i-- {
				if endsAtTerminator(text, i) {
					cut = i
					snapped = true
					break
				}
			}
			if !snapped {
				// No terminator in the window: cut at the raw budget, but
				// never through the middle of a multi-byte rune.
				raw := cut
				for cut > pos && !utf8.RuneStart(text[cut]) {
					cut--
				}
				if cut == pos {
					cut = raw
				}
			}
		}
		if strings.TrimSpace(text[pos:cut]) != "" {
			chunks = append(chunks, chunk{start: pos, end: cut})
		}
		pos = cut
	}
	return chunks
}

// terminators that may end a chunk, covering both ASCII and fullwidth CJK
// sentence punctuation.
var terminators = []string{"\n", "\r", "。", "！", "？", ".", "!", "?"}

func endsAtTerminator(text string, i int) bool {
	for _, t := range terminators {
		if strings.HasSuffix(text[:i], t) {
			return true
		}
	}
	return false
}
