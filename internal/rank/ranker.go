// Package rank selects the most extraction-relevant pages when a profile
// caps how many pages may be sent to the generator. Two strategies exist:
// keyword rules when the profile declares page types, and content-density
// scoring otherwise. Either way the selection is returned in original page
// order.
package rank

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/veridian-labs/docextract/internal/model"
	"github.com/veridian-labs/docextract/internal/profile"
)

// densityKeywords weight pages that carry extraction-relevant vocabulary in
// the fallback scoring strategy.
var densityKeywords = []string{
	"ingredient", "inci", "composizione", "成分",
	"composition", "formula", "specification",
}

const (
	tableWeight   = 100
	keywordWeight = 200
)

// RankAndCap returns the page numbers to extract from, at most
// prof.MaxPages of them, in ascending page order. A zero or over-large cap
// selects everything.
func RankAndCap(pages []model.Page, prof *profile.Profile) []int {
	if prof == nil || prof.MaxPages <= 0 || prof.MaxPages >= len(pages) {
		return allNumbers(pages)
	}

	var selected []int
	if len(prof.PageIdentify) > 0 {
		selected = selectByRules(pages, prof)
	} else {
		selected = selectByDensity(pages, prof.MaxPages)
	}

	sort.Ints(selected)
	zap.L().Info("rank: capped page selection",
		zap.Int("total", len(pages)),
		zap.Int("selected", len(selected)),
		zap.Ints("pages", selected),
	)
	return selected
}

func allNumbers(pages []model.Page) []int {
	out := make([]int, len(pages))
	for i, p := range pages {
		out[i] = p.Number
	}
	return out
}

// selectByRules picks pages matching the profile's page types, visiting
// types in ascending priority (ties broken by type name), then backfills
// leading pages if the cap is not reached.
func selectByRules(pages []model.Page, prof *profile.Profile) []int {
	type rule struct {
		name     string
		priority int
		keywords []string
	}
	rules := make([]rule, 0, len(prof.PageIdentify))
	for name, r := range prof.PageIdentify {
		rules = append(rules, rule{name: name, priority: r.Priority, keywords: r.Keywords})
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].priority != rules[j].priority {
			return rules[i].priority < rules[j].priority
		}
		return rules[i].name < rules[j].name
	})

	limit := prof.MaxPages
	taken := make(map[int]bool, limit)
	var selected []int

	add := func(n int) bool {
		if taken[n] {
			return len(selected) < limit
		}
		taken[n] = true
		selected = append(selected, n)
		return len(selected) < limit
	}

	for _, r := range rules {
		for _, page := range pages {
			if matchesAny(page, r.keywords) {
				if !add(page.Number) {
					return selected
				}
			}
		}
	}

	// Backfill with leading pages so sparse rule matches still yield a
	// full selection.
	for _, page := range pages {
		if !add(page.Number) {
			return selected
		}
	}
	return selected
}

func matchesAny(page model.Page, keywords []string) bool {
	lower := strings.ToLower(page.Text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// selectByDensity scores each page by text volume, table count, and domain
// vocabulary, then takes the highest-scoring pages up to the limit.
func selectByDensity(pages []model.Page, limit int) []int {
	type scored struct {
		number int
		score  int
	}
	all := make([]scored, 0, len(pages))
	for _, p := range pages {
		all = append(all, scored{number: p.Number, score: densityScore(p)})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })

	if limit > len(all) {
		limit = len(all)
	}
	out := make([]int, 0, limit)
	for _, s := range all[:limit] {
		out = append(out, s.number)
	}
	return out
}

func densityScore(p model.Page) int {
	score := len(p.Text) + tableWeight*len(p.Tables)
	lower := strings.ToLower(p.Text)
	for _, kw := range densityKeywords {
		if strings.Contains(lower, kw) {
			score += keywordWeight
		}
	}
	return score
}
