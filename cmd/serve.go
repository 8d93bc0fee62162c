package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yorulabs/leadgen-cli/internal/model"
	"github.com/yorulabs/leadgen-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Clay enrichment callback server",
	Long:  "Listens for Clay's asynchronous enrichment results and completes the matching pending enrichment rows.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(st),
		}

		// Graceful shutdown. The signal context is already canceled here, so
		// the drain window needs its own deadline.
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownServer(srv)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/callbacks/clay", handleClayCallback(st))

	return r
}

// clayCallback is the body Clay posts back after enriching a lead. Either
// lead_id or email identifies the lead.
type clayCallback struct {
	LeadID string          `json:"lead_id"`
	Email  string          `json:"email"`
	Data   json.RawMessage `json:"data"`
}

func handleClayCallback(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req clayCallback
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.LeadID == "" && req.Email == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lead_id or email is required"})
			return
		}

		ctx := r.Context()
		pending, err := findPending(ctx, st, req)
		if err != nil {
			zap.L().Error("callback lookup failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
			return
		}
		if pending == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no pending enrichment"})
			return
		}

		// The enrichment log is append-only: the pending row stays as-is and
		// a completed row supersedes it.
		completed := &model.Enrichment{
			LeadID: pending.LeadID,
			Source: pending.Source,
			Status: model.EnrichmentCompleted,
			Data:   req.Data,
		}
		if err := st.SaveEnrichment(ctx, completed); err != nil {
			zap.L().Error("callback completion failed", zap.String("lead_id", pending.LeadID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "completion failed"})
			return
		}

		zap.L().Info("enrichment completed",
			zap.String("enrichment_id", completed.ID),
			zap.String("lead_id", completed.LeadID),
		)
		writeJSON(w, http.StatusOK, map[string]string{
			"status":        "ok",
			"enrichment_id": completed.ID,
		})
	}
}

// findPending resolves the callback to its pending enrichment row. A lead_id
// takes precedence over an email.
func findPending(ctx context.Context, st store.Store, req clayCallback) (*model.Enrichment, error) {
	if req.LeadID != "" {
		e, err := st.LatestEnrichment(ctx, req.LeadID)
		if err != nil {
			return nil, err
		}
		if e == nil || e.Status != model.EnrichmentPending {
			return nil, nil
		}
		return e, nil
	}
	return st.FindPendingEnrichmentByEmail(ctx, model.NormalizeEmail(req.Email))
}

const shutdownTimeout = 10 * time.Second

// shutdownServer drains in-flight requests for up to shutdownTimeout.
func shutdownServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Warn("server shutdown", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
