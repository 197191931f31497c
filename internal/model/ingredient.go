package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// upperCaser folds ingredient names Unicode-correctly so casing differences
// across segments ("Water" vs "WATER") collapse to one identity.
var upperCaser = cases.Upper(language.Und)

// IngredientEntry is one component/constituent record. Entries are
// deduplicated across segments by a name-based identity key.
type IngredientEntry struct {
	Name       string            `json:"name"`
	Identifier string            `json:"identifier,omitempty"`
	Amount     string            `json:"amount,omitempty"`
	Role       string            `json:"role,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// NameKey returns the case-folded name component of the identity, or "" for
// a blank name. Entries with a blank name have no identity and are never
// merged.
func (e IngredientEntry) NameKey() string {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return ""
	}
	return upperCaser.String(name)
}

// Key returns the full identity key: uppercase(trim(name)) + "|" +
// trim(identifier).
func (e IngredientEntry) Key() string {
	name := e.NameKey()
	if name == "" {
		return ""
	}
	return name + "|" + strings.TrimSpace(e.Identifier)
}

// Ingredient field-name aliases, matched case-insensitively when converting
// a generic object into an IngredientEntry. Generators name these fields
// inconsistently across runs and backends.
var (
	ingredientNameKeys       = []string{"name", "inci_name", "inci", "ingredient_name", "ingredient"}
	ingredientIdentifierKeys = []string{"identifier", "cas_number", "cas", "cas_no", "ec_number"}
	ingredientAmountKeys     = []string{"amount", "concentration", "content", "percentage", "quantity"}
	ingredientRoleKeys       = []string{"role", "function", "purpose"}
)

// IngredientFromValue converts an object value into an IngredientEntry,
// mapping well-known aliases onto the canonical fields and keeping everything
// else in Extra. Non-object values yield an entry whose name is the text.
func IngredientFromValue(v Value) IngredientEntry {
	if v.Kind != KindObject {
		return IngredientEntry{Name: strings.TrimSpace(v.Text)}
	}

	entry := IngredientEntry{}
	for _, k := range SortedKeys(v.Object) {
		item := v.Object[k]
		text := item.Text
		if item.Kind != KindText {
			// Nested structure inside an ingredient row is rare; keep a
			// JSON rendering so nothing is silently dropped.
			if b, err := item.MarshalJSON(); err == nil {
				text = string(b)
			}
		}
		switch {
		case matchesAlias(k, ingredientNameKeys) && entry.Name == "":
			entry.Name = strings.TrimSpace(text)
		case matchesAlias(k, ingredientIdentifierKeys) && entry.Identifier == "":
			entry.Identifier = strings.TrimSpace(text)
		case matchesAlias(k, ingredientAmountKeys) && entry.Amount == "":
			entry.Amount = strings.TrimSpace(text)
		case matchesAlias(k, ingredientRoleKeys) && entry.Role == "":
			entry.Role = strings.TrimSpace(text)
		default:
			if entry.Extra == nil {
				entry.Extra = make(map[string]string)
			}
			entry.Extra[k] = text
		}
	}
	return entry
}

// Value converts the entry back into an object value for the merged record.
func (e IngredientEntry) Value() Value {
	obj := make(map[string]Value, 4+len(e.Extra))
	obj["name"] = TextValue(e.Name)
	if e.Identifier != "" {
		obj["identifier"] = TextValue(e.Identifier)
	}
	if e.Amount != "" {
		obj["amount"] = TextValue(e.Amount)
	}
	if e.Role != "" {
		obj["role"] = TextValue(e.Role)
	}
	for k, v := range e.Extra {
		if _, taken := obj[k]; !taken {
			obj[k] = TextValue(v)
		}
	}
	return ObjectValue(obj)
}

func matchesAlias(key string, aliases []string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	for _, a := range aliases {
		if k == a {
			return true
		}
	}
	return false
}
