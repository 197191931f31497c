// Package prompt assembles the generator prompt from the caller-supplied
// instruction, the segment content, and optionally the profile's field list.
// There is no built-in fallback instruction: callers must always supply one.
package prompt

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/veridian-labs/docextract/internal/profile"
)

// ErrMissingInstruction is returned when no extraction instruction was
// supplied. The pipeline fails closed rather than inventing a prompt.
var ErrMissingInstruction = eris.New("prompt: no extraction instruction supplied")

// Placeholders an instruction may embed to control where the segment content
// and the profile view are injected.
const (
	ContentPlaceholder = "{{content}}"
	ProfilePlaceholder = "{{profile}}"
)

// Strategy controls whether the profile's field list is embedded in the
// prompt.
type Strategy string

const (
	StrategyAlways Strategy = "always"
	StrategyNever  Strategy = "never"
	StrategyAuto   Strategy = "auto"
)

// ParseStrategy validates a configured strategy name, defaulting to auto.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyAlways:
		return StrategyAlways, nil
	case StrategyNever:
		return StrategyNever, nil
	case StrategyAuto, "":
		return StrategyAuto, nil
	}
	return "", eris.Errorf("prompt: unknown profile strategy %q", s)
}

// profileVocabulary is the wording that signals an instruction expects the
// field schema to be available, used by the auto strategy.
var profileVocabulary = []string{"profile", "fields", "schema", "structure", "配置", "欄位"}

// Builder assembles prompts for one configured strategy.
type Builder struct {
	Strategy Strategy
}

// Build renders the final prompt. Placeholders are substituted where
// present; otherwise the profile section (if included) and then the document
// content are appended as delimited sections, with the content always last.
func (b Builder) Build(instruction, content string, prof *profile.Profile) (string, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return "", ErrMissingInstruction
	}

	out := instruction
	includeProfile := prof != nil && b.includeProfile(instruction)

	if includeProfile {
		view := prof.PromptView()
		if strings.Contains(out, ProfilePlaceholder) {
			out = strings.ReplaceAll(out, ProfilePlaceholder, view)
		} else {
			out += "\n\n=== EXTRACTION PROFILE ===\n" + view + "\n=== END EXTRACTION PROFILE ==="
		}
	} else {
		// A placeholder with nothing to fill must not leak into the prompt.
		out = strings.ReplaceAll(out, ProfilePlaceholder, "")
	}

	if strings.Contains(out, ContentPlaceholder) {
		out = strings.ReplaceAll(out, ContentPlaceholder, content)
	} else {
		out += "\n\n=== DOCUMENT CONTENT ===\n" + content + "\n=== END DOCUMENT CONTENT ==="
	}

	return out, nil
}

// includeProfile applies the configured strategy. Auto includes the profile
// only when the instruction's own wording references a schema.
func (b Builder) includeProfile(instruction string) bool {
	switch b.Strategy {
	case StrategyAlways:
		return true
	case StrategyNever:
		return false
	}
	lower := strings.ToLower(instruction)
	for _, word := range profileVocabulary {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
