package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/veridian-labs/docextract/internal/extractor"
	"github.com/veridian-labs/docextract/internal/model"
	"github.com/veridian-labs/docextract/internal/profile"
	"github.com/veridian-labs/docextract/internal/rank"
	"github.com/veridian-labs/docextract/internal/segment"
)

var (
	planInput           string
	planInstructionFile string
	planProfilePath     string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Preview segmentation, page selection, and cost without calling the generator",
	RunE: func(cmd *cobra.Command, _ []string) error {
		pages, err := loadDocument(planInput)
		if err != nil {
			return err
		}

		var prof *profile.Profile
		if planProfilePath != "" {
			if prof, err = profile.Load(planProfilePath); err != nil {
				return err
			}
		}

		instruction := ""
		if planInstructionFile != "" {
			data, err := os.ReadFile(planInstructionFile)
			if err != nil {
				return err
			}
			instruction = string(data)
		}

		store := model.NewPageStore(pages)
		var selected []int
		if prof != nil && prof.UsePageExtraction {
			selected = rank.RankAndCap(store.Pages(), prof)
			fmt.Printf("Selected pages: %v (of %d)\n\n", selected, store.Len())
		}

		planner := segment.Planner{Providers: cfg.Providers}
		segments, err := planner.Plan(store, providerID(cfg), selected)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SEGMENT\tPAGES\tCHARS")
		for _, s := range segments {
			fmt.Fprintf(w, "%d\t%v\t%d\n", s.Ordinal, s.SourcePages, len(s.Text))
		}
		w.Flush()

		est := extractor.EstimateCost(segments, instruction,
			cfg.Generator.MaxOutputTokens, cfg.Pricing.ForModel(cfg.Generator.Model))
		fmt.Printf("\nEstimated input tokens:  %d\n", est.InputTokens)
		fmt.Printf("Estimated output tokens: %d (upper bound)\n", est.OutputTokens)
		fmt.Printf("Estimated cost:          $%.4f\n", est.USD)
		return nil
	},
}

func init() {
	planCmd.Flags().StringVarP(&planInput, "input", "i", "", "document file (JSON pages or plain text)")
	planCmd.Flags().StringVar(&planInstructionFile, "instruction-file", "", "instruction file, included in the token estimate")
	planCmd.Flags().StringVarP(&planProfilePath, "profile", "p", "", "profile YAML path")
	_ = planCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(planCmd)
}
