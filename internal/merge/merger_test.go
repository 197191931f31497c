package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridian-labs/docextract/internal/model"
)

func rec(ordinal int, fields map[string]model.Value) *model.RecoveredRecord {
	return &model.RecoveredRecord{Fields: fields, SegmentOrdinal: ordinal, RawText: "raw"}
}

func TestMergeFirstSeenTextWins(t *testing.T) {
	m := Merger{}
	final, err := m.Merge([]*model.RecoveredRecord{
		rec(1, map[string]model.Value{"product_name": model.TextValue("Hydra Cream")}),
		rec(2, map[string]model.Value{"product_name": model.TextValue("Hydra")}),
	})
	require.NoError(t, err)

	// Later text already contained in the earlier value adds nothing.
	assert.Equal(t, "Hydra Cream", final.Fields["product_name"].Text)
}

func TestMergeTextAppendsNewInformation(t *testing.T) {
	m := Merger{}
	final, err := m.Merge([]*model.RecoveredRecord{
		rec(1, map[string]model.Value{"notes": model.TextValue("Stored at 20C.")}),
		rec(2, map[string]model.Value{"notes": model.TextValue("Shake before use.")}),
	})
	require.NoError(t, err)
	assert.Equal(t, "Stored at 20C.\nShake before use.", final.Fields["notes"].Text)
}

func TestMergeNonEmptyReplacesEmpty(t *testing.T) {
	m := Merger{}
	final, err := m.Merge([]*model.RecoveredRecord{
		rec(1, map[string]model.Value{"manufacturer": model.TextValue("")}),
		rec(2, map[string]model.Value{"manufacturer": model.TextValue("Veridian Labs")}),
	})
	require.NoError(t, err)
	assert.Equal(t, "Veridian Labs", final.Fields["manufacturer"].Text)
}

func TestMergeListsConcatenate(t *testing.T) {
	m := Merger{}
	final, err := m.Merge([]*model.RecoveredRecord{
		rec(1, map[string]model.Value{"warnings": model.ListValue([]model.Value{model.TextValue("a")})}),
		rec(2, map[string]model.Value{"warnings": model.ListValue([]model.Value{model.TextValue("b")})}),
	})
	require.NoError(t, err)
	require.Equal(t, model.KindList, final.Fields["warnings"].Kind)
	require.Len(t, final.Fields["warnings"].List, 2)
	assert.Equal(t, "a", final.Fields["warnings"].List[0].Text)
	assert.Equal(t, "b", final.Fields["warnings"].List[1].Text)
}

func TestMergeIngredientListDeduplicates(t *testing.T) {
	aqua := func(role string) model.Value {
		return model.ObjectValue(map[string]model.Value{
			"name": model.TextValue("Aqua"),
			"role": model.TextValue(role),
		})
	}
	m := Merger{IngredientField: "ingredients"}
	final, err := m.Merge([]*model.RecoveredRecord{
		rec(1, map[string]model.Value{"ingredients": model.ListValue([]model.Value{aqua("solvent")})}),
		rec(2, map[string]model.Value{"ingredients": model.ListValue([]model.Value{aqua("diluent")})}),
	})
	require.NoError(t, err)

	list := final.Fields["ingredients"].List
	require.Len(t, list, 1)
	assert.Equal(t, "Aqua", list[0].Object["name"].Text)
	assert.Equal(t, "solvent, diluent", list[0].Object["role"].Text)
}

func TestMergeIngredientMissingIdentifierGainsIt(t *testing.T) {
	m := Merger{IngredientField: "ingredients"}
	final, err := m.Merge([]*model.RecoveredRecord{
		rec(1, map[string]model.Value{"ingredients": model.ListValue([]model.Value{
			model.ObjectValue(map[string]model.Value{
				"name": model.TextValue("Water"),
			}),
		})}),
		rec(2, map[string]model.Value{"ingredients": model.ListValue([]model.Value{
			model.ObjectValue(map[string]model.Value{
				"name":       model.TextValue("WATER"),
				"identifier": model.TextValue("7732-18-5"),
			}),
		})}),
	})
	require.NoError(t, err)

	list := final.Fields["ingredients"].List
	require.Len(t, list, 1, "same-named entries must merge when only one carries an identifier")
	assert.Equal(t, "Water", list[0].Object["name"].Text)
	assert.Equal(t, "7732-18-5", list[0].Object["identifier"].Text)
}

func TestMergeObjectsRecursively(t *testing.T) {
	m := Merger{}
	final, err := m.Merge([]*model.RecoveredRecord{
		rec(1, map[string]model.Value{"packaging": model.ObjectValue(map[string]model.Value{
			"material": model.TextValue("glass"),
		})}),
		rec(2, map[string]model.Value{"packaging": model.ObjectValue(map[string]model.Value{
			"material": model.TextValue("glass"),
			"volume":   model.TextValue("50ml"),
		})}),
	})
	require.NoError(t, err)

	pkg := final.Fields["packaging"].Object
	assert.Equal(t, "glass", pkg["material"].Text)
	assert.Equal(t, "50ml", pkg["volume"].Text)
}

func TestMergeKindMismatchKeepsFirst(t *testing.T) {
	m := Merger{}
	final, err := m.Merge([]*model.RecoveredRecord{
		rec(1, map[string]model.Value{"field": model.TextValue("scalar")}),
		rec(2, map[string]model.Value{"field": model.ListValue([]model.Value{model.TextValue("x")})}),
	})
	require.NoError(t, err)
	assert.Equal(t, model.KindText, final.Fields["field"].Kind)
	assert.Equal(t, "scalar", final.Fields["field"].Text)
}

func TestMergeStatsAndRawTrail(t *testing.T) {
	failed := &model.RecoveredRecord{
		SegmentOrdinal: 2,
		RawText:        "garbled",
		FailureReason:  model.FailureUnparsable,
	}
	m := Merger{}
	final, err := m.Merge([]*model.RecoveredRecord{
		rec(1, map[string]model.Value{"a": model.TextValue("x")}),
		failed,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, final.Stats.SegmentsTotal)
	assert.Equal(t, 1, final.Stats.SegmentsSucceeded)
	assert.Equal(t, 1, final.Stats.SegmentsFailed)
	assert.Contains(t, final.RawResponse, "=== SEGMENT 1 ===")
	assert.Contains(t, final.RawResponse, "=== SEGMENT 2 ===")
	assert.Contains(t, final.RawResponse, "garbled")
}

func TestMergeAllSegmentsFailed(t *testing.T) {
	m := Merger{}
	_, err := m.Merge([]*model.RecoveredRecord{
		{SegmentOrdinal: 1, FailureReason: model.FailureUnparsable},
		{SegmentOrdinal: 2, FailureReason: model.FailureEchoedDocument},
	})
	assert.ErrorIs(t, err, ErrAllSegmentsFailed)
}

func TestReconcileCaseInsensitiveIdentity(t *testing.T) {
	entries := []model.IngredientEntry{
		{Name: "Water", Identifier: "7732-18-5"},
		{Name: "WATER", Identifier: "7732-18-5", Amount: "60%"},
		{Name: "Glycerin"},
	}
	out := Reconcile(entries)
	require.Len(t, out, 2)
	assert.Equal(t, "Water", out[0].Name)
	assert.Equal(t, "60%", out[0].Amount)
	assert.Equal(t, "Glycerin", out[1].Name)
}

func TestReconcileBlankIdentifierWildcard(t *testing.T) {
	entries := []model.IngredientEntry{
		{Name: "Water"},
		{Name: "WATER", Identifier: "7732-18-5", Amount: "60%"},
		{Name: "Water", Identifier: "231-791-2"},
	}
	out := Reconcile(entries)

	// The unidentified entry absorbs the identified duplicate; the entry
	// with a conflicting identifier stays separate.
	require.Len(t, out, 2)
	assert.Equal(t, "Water", out[0].Name)
	assert.Equal(t, "7732-18-5", out[0].Identifier)
	assert.Equal(t, "60%", out[0].Amount)
	assert.Equal(t, "231-791-2", out[1].Identifier)
}

func TestReconcileBlankNameNeverMerged(t *testing.T) {
	entries := []model.IngredientEntry{
		{Name: "", Amount: "1%"},
		{Name: "", Amount: "2%"},
	}
	out := Reconcile(entries)
	assert.Len(t, out, 2)
}

func TestCleanText(t *testing.T) {
	fields := map[string]model.Value{
		"name": model.TextValue("  Hydra   Cream\t\tPlus  "),
		"list": model.ListValue([]model.Value{model.TextValue("a   b")}),
	}
	CleanText(fields)
	assert.Equal(t, "Hydra Cream Plus", fields["name"].Text)
	assert.Equal(t, "a b", fields["list"].List[0].Text)
}
