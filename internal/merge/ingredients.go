package merge

import (
	"strings"

	"github.com/veridian-labs/docextract/internal/model"
)

// Reconcile deduplicates ingredient entries across segments. Entries keep
// their first-seen order; later duplicates fill gaps in the earlier entry
// rather than replacing it, and roles accumulate. A blank identifier is a
// wildcard: an entry without one merges with a same-named entry that has
// one, and the identifier backfills. Two same-named entries stay separate
// only when both carry identifiers that differ.
func Reconcile(entries []model.IngredientEntry) []model.IngredientEntry {
	out := make([]model.IngredientEntry, 0, len(entries))
	byName := make(map[string][]int, len(entries))

	for _, e := range entries {
		name := e.NameKey()
		if name == "" {
			// No usable identity; keep the row as-is.
			out = append(out, e)
			continue
		}
		merged := false
		for _, at := range byName[name] {
			if sameIdentity(out[at], e) {
				out[at] = fold(out[at], e)
				merged = true
				break
			}
		}
		if !merged {
			byName[name] = append(byName[name], len(out))
			out = append(out, e)
		}
	}
	return out
}

// sameIdentity reports whether two same-named entries denote one ingredient:
// identifiers match, or at least one side does not carry one.
func sameIdentity(a, b model.IngredientEntry) bool {
	ai := strings.TrimSpace(a.Identifier)
	bi := strings.TrimSpace(b.Identifier)
	return ai == "" || bi == "" || ai == bi
}

// fold absorbs a duplicate entry into the first-seen one.
func fold(base, dup model.IngredientEntry) model.IngredientEntry {
	if base.Identifier == "" {
		base.Identifier = dup.Identifier
	}
	if base.Amount == "" {
		base.Amount = dup.Amount
	}
	base.Role = accumulateRole(base.Role, dup.Role)
	for k, v := range dup.Extra {
		if base.Extra == nil {
			base.Extra = make(map[string]string)
		}
		if _, taken := base.Extra[k]; !taken {
			base.Extra[k] = v
		}
	}
	return base
}

// accumulateRole appends a new role with ", " unless it is already listed.
func accumulateRole(have, add string) string {
	add = strings.TrimSpace(add)
	switch {
	case add == "":
		return have
	case have == "":
		return add
	case strings.Contains(strings.ToLower(have), strings.ToLower(add)):
		return have
	default:
		return have + ", " + add
	}
}

// reconcileValues runs identity reconciliation over raw list values,
// converting through IngredientEntry and back.
func reconcileValues(values []model.Value) []model.Value {
	entries := make([]model.IngredientEntry, 0, len(values))
	for _, v := range values {
		entries = append(entries, model.IngredientFromValue(v))
	}
	deduped := Reconcile(entries)
	out := make([]model.Value, 0, len(deduped))
	for _, e := range deduped {
		out = append(out, e.Value())
	}
	return out
}
