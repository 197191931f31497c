// Package merge folds per-segment recovered records into one final record.
// Merging is order-sensitive: segments are folded in document order and the
// first-seen value for a field wins unless a later segment genuinely adds
// information.
package merge

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/veridian-labs/docextract/internal/model"
)

// ErrAllSegmentsFailed is returned when no segment produced a usable record.
var ErrAllSegmentsFailed = eris.New("merge: every segment failed recovery")

// Merger folds segment records. IngredientField names the list field whose
// entries are reconciled by identity instead of plain concatenation.
type Merger struct {
	IngredientField string
}

// Merge folds the records in segment order into a final record. Failed
// segments contribute to stats and the raw-response trail but not to fields.
func (m Merger) Merge(records []*model.RecoveredRecord) (*model.FinalRecord, error) {
	final := &model.FinalRecord{Fields: make(map[string]model.Value)}
	var rawParts []string

	for _, rec := range records {
		final.Stats.SegmentsTotal++
		rawParts = append(rawParts,
			fmt.Sprintf("=== SEGMENT %d ===\n%s", rec.SegmentOrdinal, rec.RawText))

		if rec.Failed() {
			final.Stats.SegmentsFailed++
			continue
		}
		final.Stats.SegmentsSucceeded++

		for _, key := range model.SortedKeys(rec.Fields) {
			m.mergeField(final.Fields, key, rec.Fields[key])
		}
	}

	final.RawResponse = strings.Join(rawParts, "\n\n")

	if final.Stats.SegmentsTotal > 0 && final.Stats.SegmentsSucceeded == 0 {
		return nil, eris.Wrapf(ErrAllSegmentsFailed, "%d segments", final.Stats.SegmentsTotal)
	}
	if final.Stats.SegmentsFailed > 0 {
		zap.L().Warn("merge: partial result",
			zap.Int("succeeded", final.Stats.SegmentsSucceeded),
			zap.Int("failed", final.Stats.SegmentsFailed),
		)
	}
	return final, nil
}

// mergeField folds one incoming value into the accumulating field map.
func (m Merger) mergeField(into map[string]model.Value, key string, incoming model.Value) {
	existing, present := into[key]
	if !present {
		into[key] = incoming
		return
	}

	if existing.Kind != incoming.Kind {
		// Shape disagreement across segments: the earlier segment wins
		// unless it carried nothing.
		if existing.IsEmpty() && !incoming.IsEmpty() {
			into[key] = incoming
		}
		return
	}

	switch existing.Kind {
	case model.KindText:
		into[key] = mergeText(existing, incoming)
	case model.KindList:
		combined := append(append([]model.Value{}, existing.List...), incoming.List...)
		if key == m.IngredientField {
			combined = reconcileValues(combined)
		}
		into[key] = model.ListValue(combined)
	case model.KindObject:
		into[key] = m.mergeObject(existing, incoming)
	}
}

// mergeText keeps the first non-empty text, appending later text only when
// it is not already contained in what we have.
func mergeText(existing, incoming model.Value) model.Value {
	a := strings.TrimSpace(existing.Text)
	b := strings.TrimSpace(incoming.Text)
	switch {
	case b == "":
		return existing
	case a == "":
		return incoming
	case strings.Contains(a, b):
		return existing
	default:
		return model.TextValue(a + "\n" + b)
	}
}

// mergeObject merges two object values key by key, recursively.
func (m Merger) mergeObject(existing, incoming model.Value) model.Value {
	out := make(map[string]model.Value, len(existing.Object))
	for k, v := range existing.Object {
		out[k] = v
	}
	for _, k := range model.SortedKeys(incoming.Object) {
		m.mergeField(out, k, incoming.Object[k])
	}
	return model.ObjectValue(out)
}
