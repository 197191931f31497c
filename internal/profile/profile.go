// Package profile loads and exposes the per-document-type extraction
// configuration: the field list, page selection policy, and post-processing
// toggles. Profiles are read-only for the lifetime of an extraction call.
package profile

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Field is one named output field with a declared type.
type Field struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
}

// PageRule declares keywords identifying one page type, with a selection
// priority (lower sorts first).
type PageRule struct {
	Keywords []string `yaml:"keywords" json:"keywords"`
	Priority int      `yaml:"priority" json:"priority"`
}

// Profile is the externally supplied field/policy configuration for one
// document type.
type Profile struct {
	Name              string              `yaml:"name" json:"name"`
	Fields            []Field             `yaml:"fields" json:"fields"`
	UsePageExtraction bool                `yaml:"use_page_extraction" json:"use_page_extraction"`
	MaxPages          int                 `yaml:"max_pages" json:"max_pages"`
	IngredientField   string              `yaml:"ingredient_field" json:"ingredient_field"`
	PageIdentify      map[string]PageRule `yaml:"page_identification" json:"page_identification"`
	PostProcess       map[string]bool     `yaml:"post_process" json:"post_process"`
}

// Load reads a profile from a YAML file. There is no built-in default
// profile; a missing or unreadable file is an error.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "profile: read %s", path)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrapf(err, "profile: parse %s", path)
	}
	if p.Name == "" {
		return nil, eris.Errorf("profile: %s has no name", path)
	}
	return &p, nil
}

// FieldNames returns the declared field names in order.
func (p *Profile) FieldNames() []string {
	names := make([]string, 0, len(p.Fields))
	for _, f := range p.Fields {
		names = append(names, f.Name)
	}
	return names
}

// PromptView returns a size-reduced JSON view of the profile (name and field
// list only) suitable for embedding in a prompt without dragging the full
// policy configuration into the generator's context.
func (p *Profile) PromptView() string {
	view := struct {
		Name   string  `json:"name"`
		Fields []Field `json:"fields"`
	}{Name: p.Name, Fields: p.Fields}

	b, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return `{"name":"` + p.Name + `"}`
	}
	return string(b)
}

// PostProcessEnabled reports whether a post-processing flag is set.
func (p *Profile) PostProcessEnabled(flag string) bool {
	if p == nil || p.PostProcess == nil {
		return false
	}
	return p.PostProcess[flag]
}
