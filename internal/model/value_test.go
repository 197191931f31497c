package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromJSONScalarsBecomeText(t *testing.T) {
	assert.Equal(t, TextValue("hello"), FromJSON("hello"))
	assert.Equal(t, TextValue(""), FromJSON(nil))
	assert.Equal(t, TextValue("true"), FromJSON(true))
	assert.Equal(t, TextValue("42"), FromJSON(float64(42)))
	assert.Equal(t, TextValue("0.5"), FromJSON(float64(0.5)))
	assert.Equal(t, TextValue("9007199254740993"), FromJSON(json.Number("9007199254740993")))
}

func TestFromJSONNested(t *testing.T) {
	v := FromJSON(map[string]any{
		"list": []any{"a", float64(1)},
		"obj":  map[string]any{"k": "v"},
	})
	require.Equal(t, KindObject, v.Kind)
	assert.Equal(t, KindList, v.Object["list"].Kind)
	assert.Equal(t, "a", v.Object["list"].List[0].Text)
	assert.Equal(t, "1", v.Object["list"].List[1].Text)
	assert.Equal(t, "v", v.Object["obj"].Object["k"].Text)
}

func TestValueIsEmpty(t *testing.T) {
	assert.True(t, TextValue("").IsEmpty())
	assert.True(t, TextValue("  \t").IsEmpty())
	assert.False(t, TextValue("x").IsEmpty())
	assert.True(t, ListValue(nil).IsEmpty())
	assert.False(t, ListValue([]Value{TextValue("")}).IsEmpty())
	assert.True(t, ObjectValue(nil).IsEmpty())
}

func TestValueMarshalRoundTrip(t *testing.T) {
	v := ObjectValue(map[string]Value{
		"name": TextValue("Gel"),
		"tags": ListValue([]Value{TextValue("a")}),
	})
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "Gel", "tags": ["a"]}`, string(data))

	var back Value
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, v.Equal(back))
}

func TestValueMarshalNilCollections(t *testing.T) {
	data, err := json.Marshal(ListValue(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	data, err = json.Marshal(ObjectValue(nil))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
