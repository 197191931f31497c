package merge

import (
	"regexp"
	"strings"

	"github.com/veridian-labs/docextract/internal/model"
)

var (
	runOfBlanks   = regexp.MustCompile(`[ \t]+`)
	runOfNewlines = regexp.MustCompile(`\n{3,}`)
)

// CleanText normalizes whitespace in every text value of the record,
// recursively. Applied only when the profile enables the clean_text
// post-processing flag.
func CleanText(fields map[string]model.Value) {
	for k, v := range fields {
		fields[k] = cleanValue(v)
	}
}

func cleanValue(v model.Value) model.Value {
	switch v.Kind {
	case model.KindText:
		s := runOfBlanks.ReplaceAllString(v.Text, " ")
		s = runOfNewlines.ReplaceAllString(s, "\n\n")
		return model.TextValue(strings.TrimSpace(s))
	case model.KindList:
		out := make([]model.Value, len(v.List))
		for i, item := range v.List {
			out[i] = cleanValue(item)
		}
		return model.ListValue(out)
	case model.KindObject:
		out := make(map[string]model.Value, len(v.Object))
		for k, item := range v.Object {
			out[k] = cleanValue(item)
		}
		return model.ObjectValue(out)
	}
	return v
}
