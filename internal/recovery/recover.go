// Package recovery turns raw generator responses into structured records.
// Generators misbehave in recognizable ways: they emit files instead of
// JSON, echo the document back, wrap JSON in prose or code fences, or echo
// the prompt as JSON keys. Recovery runs a fixed, ordered list of
// strategies and records which one produced the result.
package recovery

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/veridian-labs/docextract/internal/model"
)

// Recoverer applies the recovery cascade to one response at a time.
// KnownFields seeds the empty record synthesized when a response's JSON
// shape turns out to be an echoed prompt.
type Recoverer struct {
	KnownFields []string
}

// strategy is one step of the cascade. A step either claims the response
// (ok true) or passes it to the next step untouched.
type strategy struct {
	name  string
	apply func(r *Recoverer, raw string) (*model.RecoveredRecord, bool)
}

// cascade order is fixed: failure classifiers first, then parse attempts
// from strict to permissive, then last-resort scraping.
var cascade = []strategy{
	{"file_output", (*Recoverer).detectFileOutput},
	{"echoed_document", (*Recoverer).detectEchoedDocument},
	{"direct_json", (*Recoverer).parseDirect},
	{"fenced_json", (*Recoverer).parseFencedJSON},
	{"fenced", (*Recoverer).parseFencedAny},
	{"embedded_json", (*Recoverer).parseEmbedded},
	{"label_scrape", (*Recoverer).scrapeLabels},
}

// Recover runs the cascade over one generator response. The raw text is
// always retained on the result, whatever the outcome; an exhausted cascade
// yields an unparsable record rather than an error.
func (r *Recoverer) Recover(raw string, segmentOrdinal int) *model.RecoveredRecord {
	for _, s := range cascade {
		if rec, ok := s.apply(r, raw); ok {
			rec.RawText = raw
			rec.SegmentOrdinal = segmentOrdinal
			if rec.Method == "" {
				rec.Method = s.name
			}
			if rec.Failed() {
				zap.L().Warn("recovery: segment response not usable",
					zap.Int("segment", segmentOrdinal),
					zap.String("reason", string(rec.FailureReason)),
				)
			}
			return rec
		}
	}
	zap.L().Warn("recovery: cascade exhausted", zap.Int("segment", segmentOrdinal))
	return &model.RecoveredRecord{
		RawText:        raw,
		SegmentOrdinal: segmentOrdinal,
		FailureReason:  model.FailureUnparsable,
		Method:         "none",
	}
}

// --- file output detection ---------------------------------------------

var (
	dataURIRe = regexp.MustCompile(`data:[\w.+-]+/[\w.+-]+;base64,`)
	// A long unbroken run of base64 alphabet is a payload, not prose.
	base64RunRe = regexp.MustCompile(`[A-Za-z0-9+/=]{512,}`)
)

var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// detectFileOutput catches responses that are a file payload instead of an
// answer. The payload is decoded and kept so the caller can decide what to
// do with it; extraction for this segment is a failure either way.
func (r *Recoverer) detectFileOutput(raw string) (*model.RecoveredRecord, bool) {
	candidate := ""
	if loc := dataURIRe.FindStringIndex(raw); loc != nil {
		candidate = strings.TrimSpace(raw[loc[1]:])
		if cut := strings.IndexAny(candidate, " \n\r\t\"'"); cut > 0 {
			candidate = candidate[:cut]
		}
	} else if m := base64RunRe.FindString(raw); m != "" {
		candidate = m
	}
	if candidate == "" {
		return nil, false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimRight(candidate, "="))
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(candidate, "="))
	}
	if err != nil || len(decoded) < 8 {
		return nil, false
	}

	fileType := sniffFileType(decoded)
	if fileType == "" {
		return nil, false
	}
	return &model.RecoveredRecord{
		FailureReason: model.FailureFileOutputDetected,
		File: &model.FilePayload{
			Data:     decoded,
			FileType: fileType,
			Size:     len(decoded),
		},
	}, true
}

// sniffFileType matches known magic bytes; an empty return means the bytes
// are not a recognized document container.
func sniffFileType(b []byte) string {
	switch {
	case bytes.HasPrefix(b, []byte("%PDF")):
		return "pdf"
	case bytes.HasPrefix(b, []byte("PK")) && bytes.Contains(b[:min(len(b), 4096)], []byte("word/")):
		return "docx"
	case bytes.HasPrefix(b, []byte("PK")):
		return "zip"
	case bytes.HasPrefix(b, oleSignature):
		return "ole"
	}
	return ""
}

// --- echoed document detection -----------------------------------------

// documentVocabulary is wording that belongs to source documents, not to
// extraction answers.
var documentVocabulary = []string{
	"safety data sheet",
	"material safety",
	"product information file",
	"certificate of analysis",
	"=== page",
}

// detectEchoedDocument catches responses where the generator returned the
// input document instead of an answer.
func (r *Recoverer) detectEchoedDocument(raw string) (*model.RecoveredRecord, bool) {
	lower := strings.ToLower(raw)
	echoed := false
	for _, phrase := range documentVocabulary {
		if strings.Contains(lower, phrase) {
			echoed = true
			break
		}
	}
	if !echoed && len(raw) > 5000 &&
		!strings.ContainsAny(raw, "{}") && !strings.Contains(raw, "```") {
		echoed = true
	}
	if !echoed {
		return nil, false
	}
	return &model.RecoveredRecord{FailureReason: model.FailureEchoedDocument}, true
}

// --- parse strategies ---------------------------------------------------

func (r *Recoverer) parseDirect(raw string) (*model.RecoveredRecord, bool) {
	return r.fromJSON(strings.TrimSpace(raw))
}

var fencedJSONRe = regexp.MustCompile("(?s)```json\\s*(.*?)```")

func (r *Recoverer) parseFencedJSON(raw string) (*model.RecoveredRecord, bool) {
	for _, m := range fencedJSONRe.FindAllStringSubmatch(raw, -1) {
		if rec, ok := r.fromJSON(strings.TrimSpace(m[1])); ok {
			return rec, true
		}
	}
	return nil, false
}

var fencedAnyRe = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

func (r *Recoverer) parseFencedAny(raw string) (*model.RecoveredRecord, bool) {
	for _, m := range fencedAnyRe.FindAllStringSubmatch(raw, -1) {
		if rec, ok := r.fromJSON(strings.TrimSpace(m[1])); ok {
			return rec, true
		}
	}
	return nil, false
}

// embeddedObjectRe matches brace-balanced objects up to three levels deep,
// enough for records whose values are objects of scalars.
var embeddedObjectRe = regexp.MustCompile(`\{[^{}]*(?:\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}[^{}]*)*\}`)

// parseEmbedded pulls JSON objects out of surrounding prose, preferring the
// largest parseable candidate.
func (r *Recoverer) parseEmbedded(raw string) (*model.RecoveredRecord, bool) {
	candidates := embeddedObjectRe.FindAllString(raw, -1)
	best := ""
	for _, c := range candidates {
		if len(c) <= len(best) {
			continue
		}
		if json.Valid([]byte(c)) {
			best = c
		}
	}
	if best == "" {
		return nil, false
	}
	return r.fromJSON(best)
}

// fromJSON parses a candidate object and converts it to a record, routing
// degenerate shapes through repair.
func (r *Recoverer) fromJSON(candidate string) (*model.RecoveredRecord, bool) {
	if candidate == "" || candidate[0] != '{' {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(candidate))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, false
	}
	if isDegenerate(obj) {
		return r.repairDegenerate(), true
	}
	return &model.RecoveredRecord{Fields: model.FieldsFromJSON(obj)}, true
}

// isDegenerate reports whether the object's keys look like echoed prompt
// sentences rather than field names.
func isDegenerate(obj map[string]any) bool {
	if len(obj) == 0 {
		return false
	}
	sentenceLike := 0
	for k := range obj {
		if len(k) > 100 {
			return true
		}
		if len(k) > 40 && strings.Count(k, " ") >= 4 {
			sentenceLike++
		}
	}
	return sentenceLike*2 > len(obj)
}

// repairDegenerate synthesizes an empty record over the known field names so
// downstream merging sees the expected shape.
func (r *Recoverer) repairDegenerate() *model.RecoveredRecord {
	fields := make(map[string]model.Value, len(r.KnownFields))
	for _, name := range r.KnownFields {
		fields[name] = model.TextValue("")
	}
	return &model.RecoveredRecord{
		Fields:        fields,
		Method:        "degenerate_repair",
		LowConfidence: true,
	}
}

// --- label scraping -----------------------------------------------------

var labelRes = map[string]*regexp.Regexp{
	"product_name": regexp.MustCompile(`(?im)^\s*product\s*name\s*[:：]\s*(\S.*)$`),
	"manufacturer": regexp.MustCompile(`(?im)^\s*manufacturer\s*[:：]\s*(\S.*)$`),
}

// scrapeLabels salvages obvious label:value lines from prose answers. The
// result is flagged low-confidence.
func (r *Recoverer) scrapeLabels(raw string) (*model.RecoveredRecord, bool) {
	fields := make(map[string]model.Value)
	for name, re := range labelRes {
		if m := re.FindStringSubmatch(raw); m != nil {
			fields[name] = model.TextValue(strings.TrimSpace(m[1]))
		}
	}
	if len(fields) == 0 {
		return nil, false
	}
	return &model.RecoveredRecord{Fields: fields, LowConfidence: true}, true
}
