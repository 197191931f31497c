// Package extractor orchestrates one document's journey through the
// pipeline: page selection, segment planning, prompt construction, the
// generator calls, response recovery, and the final merge. Segments are
// processed sequentially and in order; a failed segment degrades the result
// instead of aborting it.
package extractor

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/veridian-labs/docextract/internal/merge"
	"github.com/veridian-labs/docextract/internal/model"
	"github.com/veridian-labs/docextract/internal/profile"
	"github.com/veridian-labs/docextract/internal/prompt"
	"github.com/veridian-labs/docextract/internal/rank"
	"github.com/veridian-labs/docextract/internal/recovery"
	"github.com/veridian-labs/docextract/internal/resilience"
	"github.com/veridian-labs/docextract/internal/segment"
	"github.com/veridian-labs/docextract/pkg/genai"
)

// Request describes one extraction call. Provider identity travels with the
// request; the extractor holds no per-document state between calls.
type Request struct {
	Pages         []model.Page
	Instruction   string
	Profile       *profile.Profile
	ProviderID    string
	SelectedPages []int
}

// Extractor wires the pipeline stages around one generator.
type Extractor struct {
	Generator       genai.Generator
	Planner         segment.Planner
	Builder         prompt.Builder
	Retry           resilience.Policy
	MaxOutputTokens int
}

// Extract runs the full pipeline for one document. Context cancellation
// stops issuing further generator calls; segments already processed still
// merge into a valid partial record.
func (e *Extractor) Extract(ctx context.Context, req Request) (*model.FinalRecord, error) {
	store := model.NewPageStore(req.Pages)

	selected := req.SelectedPages
	if len(selected) == 0 && req.Profile != nil && req.Profile.UsePageExtraction {
		selected = rank.RankAndCap(store.Pages(), req.Profile)
	}

	segments, err := e.Planner.Plan(store, req.ProviderID, selected)
	if err != nil {
		return nil, err
	}
	zap.L().Info("extract: plan ready",
		zap.String("provider", req.ProviderID),
		zap.Int("pages", store.Len()),
		zap.Int("segments", len(segments)),
	)

	recoverer := &recovery.Recoverer{}
	ingredientField := ""
	if req.Profile != nil {
		recoverer.KnownFields = req.Profile.FieldNames()
		ingredientField = req.Profile.IngredientField
	}

	records := make([]*model.RecoveredRecord, 0, len(segments))
	for _, seg := range segments {
		if ctx.Err() != nil {
			zap.L().Warn("extract: cancelled, merging partial result",
				zap.Int("completed", len(records)),
				zap.Int("planned", len(segments)),
			)
			break
		}

		promptText, err := e.Builder.Build(req.Instruction, seg.Text, req.Profile)
		if err != nil {
			return nil, err
		}

		raw, err := e.generate(ctx, req.ProviderID, promptText)
		if err != nil {
			zap.L().Warn("extract: segment generation failed",
				zap.Int("segment", seg.Ordinal),
				zap.Error(err),
			)
			records = append(records, &model.RecoveredRecord{
				SegmentOrdinal: seg.Ordinal,
				RawText:        "generation error: " + err.Error(),
				FailureReason:  model.FailureUnparsable,
				Method:         "none",
			})
			continue
		}

		records = append(records, recoverer.Recover(raw, seg.Ordinal))
	}

	if len(records) == 0 {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "extract: cancelled before any segment completed")
		}
		return nil, segment.ErrEmptyDocument
	}

	merger := merge.Merger{IngredientField: ingredientField}
	final, err := merger.Merge(records)
	if err != nil {
		return nil, err
	}

	if req.Profile.PostProcessEnabled("clean_text") {
		merge.CleanText(final.Fields)
	}
	return final, nil
}

// generate issues one generator call with transient-error retries. A
// rate-limit rejection gets a single local retry at half the output budget
// before the error surfaces as a segment failure.
func (e *Extractor) generate(ctx context.Context, providerID, promptText string) (string, error) {
	policy := e.Retry
	policy.ShouldRetry = func(err error) bool {
		if genai.IsRateLimit(err) {
			return false
		}
		var apiErr *genai.APIError
		if errors.As(err, &apiErr) {
			return resilience.IsTransientHTTPStatus(apiErr.StatusCode)
		}
		return resilience.IsTransient(err)
	}
	if policy.OnRetry == nil {
		policy.OnRetry = resilience.RetryLogger(providerID, "generate")
	}

	call := func(maxTokens int) (string, error) {
		return resilience.Do(ctx, policy, func(ctx context.Context) (string, error) {
			return e.Generator.Generate(ctx, promptText, maxTokens)
		})
	}

	out, err := call(e.MaxOutputTokens)
	if err != nil && genai.IsRateLimit(err) {
		reduced := e.MaxOutputTokens / 2
		zap.L().Warn("extract: rate limited, retrying with reduced output budget",
			zap.String("provider", providerID),
			zap.Int("max_output_tokens", reduced),
		)
		out, err = call(reduced)
	}
	return out, err
}
