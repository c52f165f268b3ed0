package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/boq-cli/internal/importer"
	"github.com/sells-group/boq-cli/internal/parser"
	"github.com/sells-group/boq-cli/internal/review"
	"github.com/sells-group/boq-cli/internal/store"
	"github.com/sells-group/boq-cli/internal/variance"
)

// maxUploadBytes bounds multipart document uploads.
const maxUploadBytes = 32 << 20

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the BOQ import HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		// One limiter across all uploads keeps model spend bounded no
		// matter how many clients upload at once.
		perMin := cfg.Server.AIRatePerMin
		limiter := rate.NewLimiter(rate.Limit(float64(perMin)/60.0), perMin)

		ing, err := newIngestor(limiter)
		if err != nil {
			return eris.Wrap(err, "init parser")
		}

		api := &apiServer{store: st, ingestor: ing}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.routes(cfg.Server.CORSOrigins),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// apiServer carries the HTTP handler dependencies.
type apiServer struct {
	store    store.Store
	ingestor *ingestor
}

func (a *apiServer) routes(corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/projects/{projectID}", func(r chi.Router) {
		r.Post("/boq/parse", a.handleParse)
		r.Post("/boq/confirm", a.handleConfirm)
		r.Get("/variance", a.handleVariance)
	})

	return r
}

// handleParse accepts either a multipart upload under the "file" field or a
// JSON body {"text": "..."} for pre-extracted document text. Parse failures
// are reported inside the result body with HTTP 200; only malformed
// requests get an error status.
func (a *apiServer) handleParse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	in, err := parseRequestInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := a.ingestor.parseInput(ctx, in)
	zap.L().Info("parse request complete",
		zap.String("project", chi.URLParam(r, "projectID")),
		zap.Int("items", result.TotalItems),
		zap.Int("flagged", result.FlaggedItems),
	)
	writeJSON(w, http.StatusOK, result)
}

func parseRequestInput(r *http.Request) (parser.Input, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, eris.New("invalid request body")
		}
		if req.Text == "" {
			return nil, eris.New("text is required")
		}
		return parser.FreeText{Text: req.Text}, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, eris.New("expected a multipart file upload or a JSON body")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, eris.New("file field is required")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, eris.New("failed to read upload")
	}
	return parser.Tabular{Filename: header.Filename, Data: data}, nil
}

// handleConfirm commits the selected items of a posted review session.
func (a *apiServer) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := chi.URLParam(r, "projectID")

	var session review.Session
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		writeError(w, http.StatusBadRequest, "invalid session body")
		return
	}
	// The URL owns the scope; a stale project ID inside the body is ignored.
	session.ProjectID = projectID

	n, err := importer.Commit(ctx, a.store, session)
	if err != nil {
		switch {
		case eris.Is(err, importer.ErrNothingSelected), eris.Is(err, store.ErrEmptyImport):
			writeError(w, http.StatusBadRequest, "no items selected for import")
		case eris.Is(err, store.ErrScopeMismatch):
			writeError(w, http.StatusUnprocessableEntity, "referenced entity does not belong to project")
		default:
			zap.L().Error("commit failed", zap.String("project", projectID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "commit failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"imported": n})
}

func (a *apiServer) handleVariance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := chi.URLParam(r, "projectID")

	items, err := a.store.ListBudgetItems(ctx, projectID)
	if err != nil {
		zap.L().Error("list budget items failed", zap.String("project", projectID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load budget items")
		return
	}
	expenses, err := a.store.ListExpenses(ctx, projectID)
	if err != nil {
		zap.L().Error("list expenses failed", zap.String("project", projectID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load expenses")
		return
	}

	writeJSON(w, http.StatusOK, variance.Compute(items, expenses))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
