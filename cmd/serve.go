package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nutrilog-ai/nutrilog/internal/analyzer"
	"github.com/nutrilog-ai/nutrilog/internal/cache"
	"github.com/nutrilog-ai/nutrilog/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the nutrition analysis API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, st, err := initAnalyzer(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(a, st, cfg.Server.AllowedOrigins, cfg.Server.MaxImageBytes),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Error("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("server listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

// analyzeRequest is the JSON wire shape for POST /api/analyze.
type analyzeRequest struct {
	Text            string `json:"text,omitempty"`
	AudioTranscript string `json:"audio_transcript,omitempty"`
	MealType        string `json:"meal_type,omitempty"`
	SkipCache       bool   `json:"skip_cache,omitempty"`
	ImageBase64     string `json:"image_base64,omitempty"`
	ImageMime       string `json:"image_mime,omitempty"`
}

func newRouter(a *analyzer.Analyzer, st cache.Store, allowedOrigins []string, maxImageBytes int64) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/analyze", func(w http.ResponseWriter, r *http.Request) {
		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		var imageBytes []byte
		if req.ImageBase64 != "" {
			decoded, err := base64.StdEncoding.DecodeString(req.ImageBase64)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid image encoding"})
				return
			}
			if maxImageBytes > 0 && int64(len(decoded)) > maxImageBytes {
				writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "image too large"})
				return
			}
			imageBytes = decoded
		}

		out := a.Analyze(r.Context(), analyzer.Request{
			ImageBytes:      imageBytes,
			ImageMime:       req.ImageMime,
			Text:            req.Text,
			AudioTranscript: req.AudioTranscript,
			MealType:        req.MealType,
			SkipCache:       req.SkipCache,
		})

		writeJSON(w, statusFor(out), out)
	})

	r.Get("/api/suggestions", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
			return
		}
		suggestions, err := a.SearchSuggestions(r.Context(), q)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "suggestions unavailable"})
			return
		}
		if suggestions == nil {
			suggestions = []model.FoodSuggestion{}
		}
		writeJSON(w, http.StatusOK, suggestions)
	})

	r.Get("/api/similar", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 || limit > 25 {
			limit = 10
		}
		recs, err := a.SimilarMeals(r.Context(), q, limit)
		if err != nil || recs == nil {
			recs = []model.CachedRecord{}
		}
		writeJSON(w, http.StatusOK, recs)
	})

	r.Get("/api/cache/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := st.Stats(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, stats)
	})

	return r
}

// statusFor maps an analysis outcome to an HTTP status.
func statusFor(out analyzer.Outcome) int {
	switch out.ErrorKind {
	case analyzer.ErrNone:
		return http.StatusOK
	case analyzer.ErrInvalidInput:
		return http.StatusBadRequest
	case analyzer.ErrAnalysisUnavailable:
		return http.StatusBadGateway
	case analyzer.ErrInvalidProviderData:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// requestID attaches a request ID to the response and the request log.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-ID", id)
		zap.L().Debug("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
