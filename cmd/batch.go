package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/veridian-labs/docextract/internal/extractor"
	"github.com/veridian-labs/docextract/internal/profile"
)

var (
	batchInputDir        string
	batchOutputDir       string
	batchInstruction     string
	batchInstructionFile string
	batchProfilePath     string
	batchConcurrency     int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Extract records from every document in a directory",
	Long:  "Documents are processed in parallel; within one document, segments still run sequentially and in order.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		instruction, err := readInstruction(batchInstruction, batchInstructionFile)
		if err != nil {
			return err
		}

		var prof *profile.Profile
		if batchProfilePath != "" {
			if prof, err = profile.Load(batchProfilePath); err != nil {
				return err
			}
		}

		entries, err := os.ReadDir(batchInputDir)
		if err != nil {
			return eris.Wrapf(err, "read directory %s", batchInputDir)
		}

		outDir := batchOutputDir
		if outDir == "" {
			outDir = batchInputDir
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return eris.Wrapf(err, "create %s", outDir)
		}

		gen, err := newGenerator(cfg)
		if err != nil {
			return err
		}
		ext, err := newExtractor(cfg, gen)
		if err != nil {
			return err
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrentDocuments
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		processed := 0
		for _, entry := range entries {
			if entry.IsDir() || strings.HasSuffix(entry.Name(), ".extracted.json") {
				continue
			}
			processed++
			path := filepath.Join(batchInputDir, entry.Name())
			outPath := filepath.Join(outDir, strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))+".extracted.json")

			g.Go(func() error {
				pages, err := loadDocument(path)
				if err != nil {
					zap.L().Error("batch: skipping unreadable document", zap.String("path", path), zap.Error(err))
					return nil
				}

				run, err := st.CreateRun(gctx, path, cfg.Generator.Provider, cfg.Generator.Model)
				if err != nil {
					return err
				}

				started := time.Now()
				final, err := ext.Extract(gctx, extractor.Request{
					Pages:       pages,
					Instruction: instruction,
					Profile:     prof,
					ProviderID:  providerID(cfg),
				})
				if err != nil {
					zap.L().Error("batch: document failed", zap.String("path", path), zap.Error(err))
					if ferr := st.FailRun(gctx, run.ID, err.Error()); ferr != nil {
						zap.L().Error("failed to record run failure", zap.Error(ferr))
					}
					// One failed document does not stop the batch.
					return nil
				}

				record, err := json.Marshal(final)
				if err != nil {
					return eris.Wrapf(err, "marshal record for %s", path)
				}
				if err := st.CompleteRun(gctx, run.ID, final.Stats, time.Since(started).Milliseconds(), record); err != nil {
					zap.L().Error("failed to record run completion", zap.Error(err))
				}

				return writeJSON(outPath, final)
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
		zap.L().Info("batch complete", zap.Int("documents", processed))
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchInputDir, "input-dir", "d", "", "directory of documents to process")
	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "", "directory for extracted records (default: input dir)")
	batchCmd.Flags().StringVar(&batchInstruction, "instruction", "", "extraction instruction text")
	batchCmd.Flags().StringVar(&batchInstructionFile, "instruction-file", "", "file containing the extraction instruction")
	batchCmd.Flags().StringVarP(&batchProfilePath, "profile", "p", "", "profile YAML path")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max documents in flight (default from config)")
	_ = batchCmd.MarkFlagRequired("input-dir")
	rootCmd.AddCommand(batchCmd)
}
