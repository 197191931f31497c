package extractor

import (
	"unicode"

	"github.com/veridian-labs/docextract/internal/config"
	"github.com/veridian-labs/docextract/internal/model"
)

// promptOverheadTokens approximates the fixed instruction and section
// framing sent with every segment.
const promptOverheadTokens = 200

// CJK characters tokenize denser than Latin text; these factors approximate
// observed tokenizer output well enough for budgeting.
const (
	cjkTokensPerChar   = 1.8
	otherTokensPerChar = 0.75
)

// CostEstimate is a pre-flight approximation of what an extraction will
// cost. Output tokens are an upper bound: every segment is assumed to use
// its full output budget.
type CostEstimate struct {
	Segments     int     `json:"segments"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	USD          float64 `json:"usd"`
}

// EstimateCost approximates the token and dollar cost of running the given
// segments through a model.
func EstimateCost(segments []model.Segment, instruction string, maxOutputTokens int, pricing config.ModelPricing) CostEstimate {
	instructionTokens := estimateTokens(instruction)

	est := CostEstimate{Segments: len(segments)}
	for _, seg := range segments {
		est.InputTokens += estimateTokens(seg.Text) + instructionTokens + promptOverheadTokens
		est.OutputTokens += maxOutputTokens
	}

	est.USD = float64(est.InputTokens)/1000*pricing.InputPer1K +
		float64(est.OutputTokens)/1000*pricing.OutputPer1K
	return est
}

func estimateTokens(s string) int {
	var cjk, other int
	for _, r := range s {
		if isCJK(r) {
			cjk++
		} else {
			other++
		}
	}
	return int(float64(cjk)*cjkTokensPerChar + float64(other)*otherTokensPerChar)
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
