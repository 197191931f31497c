package model

import (
	"sort"
	"strings"
)

// Table is one extracted table: an ordered sequence of rows, each row an
// ordered sequence of cell values.
type Table [][]string

// Page is one decoded page of a source document, as produced by the external
// decoder. Pages are immutable once constructed.
type Page struct {
	Number int      `json:"page_number"`
	Text   string   `json:"text"`
	Tables []Table  `json:"tables,omitempty"`
	Images []string `json:"images,omitempty"`
}

// Render returns the page text with table content appended as pipe-delimited
// rows, so tabular data survives the trip through a plain-text prompt.
func (p Page) Render() string {
	if len(p.Tables) == 0 {
		return p.Text
	}

	var b strings.Builder
	b.WriteString(p.Text)
	b.WriteString("\n\n=== TABLES ===\n")
	for _, table := range p.Tables {
		for _, row := range table {
			b.WriteString(strings.Join(row, " | "))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// PageStore holds the ordered page records for one document. It is scoped to
// a single extraction call and never shared across documents.
type PageStore struct {
	pages []Page
}

// NewPageStore builds a store from decoded pages, normalizing to page-number
// order. Input order is preserved for equal page numbers.
func NewPageStore(pages []Page) *PageStore {
	ordered := make([]Page, len(pages))
	copy(ordered, pages)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Number < ordered[j].Number
	})
	return &PageStore{pages: ordered}
}

// Pages returns all pages in page-number order.
func (s *PageStore) Pages() []Page {
	return s.pages
}

// Select returns only the pages whose numbers appear in selected, preserving
// page order. Returns all pages when selected is empty.
func (s *PageStore) Select(selected []int) []Page {
	if len(selected) == 0 {
		return s.pages
	}
	want := make(map[int]bool, len(selected))
	for _, n := range selected {
		want[n] = true
	}
	var out []Page
	for _, p := range s.pages {
		if want[p.Number] {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of pages in the store.
func (s *PageStore) Len() int {
	return len(s.pages)
}
