package main

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veridian-labs/docextract/internal/extractor"
	"github.com/veridian-labs/docextract/internal/profile"
)

var (
	extractInput           string
	extractInstruction     string
	extractInstructionFile string
	extractProfilePath     string
	extractPages           string
	extractOutput          string
	extractNoPersist       bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a structured record from one document",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		pages, err := loadDocument(extractInput)
		if err != nil {
			return err
		}

		instruction, err := readInstruction(extractInstruction, extractInstructionFile)
		if err != nil {
			return err
		}

		var prof *profile.Profile
		if extractProfilePath != "" {
			if prof, err = profile.Load(extractProfilePath); err != nil {
				return err
			}
		}

		selected, err := parsePageList(extractPages)
		if err != nil {
			return err
		}

		gen, err := newGenerator(cfg)
		if err != nil {
			return err
		}
		ext, err := newExtractor(cfg, gen)
		if err != nil {
			return err
		}

		req := extractor.Request{
			Pages:         pages,
			Instruction:   instruction,
			Profile:       prof,
			ProviderID:    providerID(cfg),
			SelectedPages: selected,
		}

		if extractNoPersist {
			final, err := ext.Extract(ctx, req)
			if err != nil {
				return err
			}
			return writeJSON(extractOutput, final)
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.CreateRun(ctx, extractInput, cfg.Generator.Provider, cfg.Generator.Model)
		if err != nil {
			return err
		}

		started := time.Now()
		final, err := ext.Extract(ctx, req)
		if err != nil {
			if ferr := st.FailRun(ctx, run.ID, err.Error()); ferr != nil {
				zap.L().Error("failed to record run failure", zap.Error(ferr))
			}
			return err
		}

		record, err := json.Marshal(final)
		if err != nil {
			return eris.Wrap(err, "marshal record")
		}
		if err := st.CompleteRun(ctx, run.ID, final.Stats, time.Since(started).Milliseconds(), record); err != nil {
			zap.L().Error("failed to record run completion", zap.Error(err))
		}

		zap.L().Info("extraction complete",
			zap.String("run_id", run.ID),
			zap.String("source", extractInput),
			zap.Int("segments", final.Stats.SegmentsTotal),
			zap.Int("failed", final.Stats.SegmentsFailed),
			zap.Duration("took", time.Since(started)),
		)
		return writeJSON(extractOutput, final)
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractInput, "input", "i", "", "document file (JSON pages or plain text)")
	extractCmd.Flags().StringVar(&extractInstruction, "instruction", "", "extraction instruction text")
	extractCmd.Flags().StringVar(&extractInstructionFile, "instruction-file", "", "file containing the extraction instruction")
	extractCmd.Flags().StringVarP(&extractProfilePath, "profile", "p", "", "profile YAML path")
	extractCmd.Flags().StringVar(&extractPages, "pages", "", "comma-separated page numbers to extract from")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "output path (default stdout)")
	extractCmd.Flags().BoolVar(&extractNoPersist, "no-persist", false, "skip recording the run in the store")
	_ = extractCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(extractCmd)
}
