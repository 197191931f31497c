package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/veridian-labs/docextract/internal/config"
	"github.com/veridian-labs/docextract/internal/extractor"
	"github.com/veridian-labs/docextract/internal/model"
	"github.com/veridian-labs/docextract/internal/prompt"
	"github.com/veridian-labs/docextract/internal/resilience"
	"github.com/veridian-labs/docextract/internal/segment"
	"github.com/veridian-labs/docextract/internal/store"
	"github.com/veridian-labs/docextract/pkg/genai"
)

// newGenerator builds the configured generation backend.
func newGenerator(cfg *config.Config) (genai.Generator, error) {
	gen := cfg.Generator
	switch gen.Provider {
	case "anthropic":
		if gen.AnthropicKey == "" {
			return nil, eris.New("generator.anthropic_key is required for the anthropic provider")
		}
		return genai.NewAnthropic(gen.AnthropicKey,
			genai.WithAnthropicModel(gen.Model),
			genai.WithAnthropicRateLimit(gen.RequestsPerMinute),
		), nil
	case "openai", "chat":
		if gen.OpenAIKey == "" {
			return nil, eris.New("generator.openai_key is required for the openai provider")
		}
		return genai.NewChat(gen.OpenAIKey,
			genai.WithChatBaseURL(gen.OpenAIBaseURL),
			genai.WithChatModel(gen.Model),
			genai.WithChatRateLimit(gen.RequestsPerMinute),
		), nil
	default:
		return nil, eris.Errorf("unknown generator provider %q", gen.Provider)
	}
}

// providerID is the identity used for chunk-threshold resolution: the model
// name when set, else the provider name.
func providerID(cfg *config.Config) string {
	if cfg.Generator.Model != "" {
		return cfg.Generator.Model
	}
	return cfg.Generator.Provider
}

// newExtractor wires the pipeline stages from configuration.
func newExtractor(cfg *config.Config, gen genai.Generator) (*extractor.Extractor, error) {
	strategy, err := prompt.ParseStrategy(cfg.Prompt.ProfileStrategy)
	if err != nil {
		return nil, err
	}
	return &extractor.Extractor{
		Generator:       gen,
		Planner:         segment.Planner{Providers: cfg.Providers},
		Builder:         prompt.Builder{Strategy: strategy},
		Retry:           resilience.FromConfig(cfg.Retry),
		MaxOutputTokens: cfg.Generator.MaxOutputTokens,
	}, nil
}

// initStore opens the configured run-history backend.
func initStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.Path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// documentFile is the on-disk JSON shape for pre-extracted page content.
type documentFile struct {
	Pages []model.Page `json:"pages"`
}

// loadDocument reads page content from disk. JSON files carry structured
// pages (with tables); anything else is treated as a single page of plain
// text.
func loadDocument(path string) ([]model.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read document %s", path)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var doc documentFile
		if err := json.Unmarshal(data, &doc); err == nil && len(doc.Pages) > 0 {
			return doc.Pages, nil
		}
		var pages []model.Page
		if err := json.Unmarshal(data, &pages); err != nil {
			return nil, eris.Wrapf(err, "parse document %s", path)
		}
		return pages, nil
	}

	return []model.Page{{Number: 1, Text: string(data)}}, nil
}

// readInstruction resolves the instruction from the flag value or a file.
// Supplying neither is an error; there is no default prompt.
func readInstruction(inline, file string) (string, error) {
	if inline != "" {
		return inline, nil
	}
	if file == "" {
		return "", prompt.ErrMissingInstruction
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", eris.Wrapf(err, "read instruction %s", file)
	}
	return string(data), nil
}

// parsePageList parses a comma-separated page selection like "1,3,7".
func parsePageList(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, eris.Wrapf(err, "invalid page number %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}

// writeJSON writes v as indented JSON to path, or stdout when path is empty.
func writeJSON(path string, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal output")
	}
	out = append(out, '\n')

	if path == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	return eris.Wrapf(os.WriteFile(path, out, 0o644), "write %s", path)
}
