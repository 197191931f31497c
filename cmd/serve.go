package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veridian-labs/docextract/internal/extractor"
	"github.com/veridian-labs/docextract/internal/merge"
	"github.com/veridian-labs/docextract/internal/model"
	"github.com/veridian-labs/docextract/internal/profile"
	"github.com/veridian-labs/docextract/internal/prompt"
	"github.com/veridian-labs/docextract/internal/segment"
	"github.com/veridian-labs/docextract/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP extraction service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

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

		deps := &serverDeps{
			ext:        ext,
			st:         st,
			providerID: providerID(cfg),
			provider:   cfg.Generator.Provider,
			model:      cfg.Generator.Model,
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(deps),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

type serverDeps struct {
	ext        *extractor.Extractor
	st         store.Store
	providerID string
	provider   string
	model      string
}

func newRouter(d *serverDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/extract", d.handleExtract)
	r.Get("/runs", d.handleListRuns)
	r.Get("/runs/{id}", d.handleGetRun)
	return r
}

// extractRequest is the POST /extract body.
type extractRequest struct {
	Source        string           `json:"source"`
	Instruction   string           `json:"instruction"`
	Pages         []model.Page     `json:"pages"`
	SelectedPages []int            `json:"selected_pages,omitempty"`
	Profile       *profile.Profile `json:"profile,omitempty"`
}

func (d *serverDeps) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Pages) == 0 {
		respondError(w, http.StatusBadRequest, "pages are required")
		return
	}

	source := req.Source
	if source == "" {
		source = "http"
	}
	run, err := d.st.CreateRun(r.Context(), source, d.provider, d.model)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	started := time.Now()
	final, err := d.ext.Extract(r.Context(), extractor.Request{
		Pages:         req.Pages,
		Instruction:   req.Instruction,
		Profile:       req.Profile,
		ProviderID:    d.providerID,
		SelectedPages: req.SelectedPages,
	})
	if err != nil {
		if ferr := d.st.FailRun(r.Context(), run.ID, err.Error()); ferr != nil {
			zap.L().Error("failed to record run failure", zap.Error(ferr))
		}
		respondError(w, statusFor(err), err.Error())
		return
	}

	record, err := json.Marshal(final)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := d.st.CompleteRun(r.Context(), run.ID, final.Stats, time.Since(started).Milliseconds(), record); err != nil {
		zap.L().Error("failed to record run completion", zap.Error(err))
	}

	respondJSON(w, http.StatusOK, struct {
		RunID  string             `json:"run_id"`
		Record *model.FinalRecord `json:"record"`
	}{RunID: run.ID, Record: final})
}

func (d *serverDeps) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := d.st.ListRuns(r.Context(), store.RunFilter{
		Status: model.RunStatus(r.URL.Query().Get("status")),
		Source: r.URL.Query().Get("source"),
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	respondJSON(w, http.StatusOK, runs)
}

func (d *serverDeps) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := d.st.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// statusFor maps pipeline errors onto HTTP statuses: caller mistakes are
// 4xx, generator misbehavior is 502, everything else 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, prompt.ErrMissingInstruction),
		errors.Is(err, segment.ErrNoPagesSelected),
		errors.Is(err, segment.ErrEmptyDocument):
		return http.StatusBadRequest
	case errors.Is(err, merge.ErrAllSegmentsFailed):
		return http.StatusBadGateway
	case errors.Is(err, store.ErrRunNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
