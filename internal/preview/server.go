package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexjbarnes/asset-sync/internal/assetsync"
	"github.com/alexjbarnes/asset-sync/internal/models"
)

// maxRequestBytes caps webhook bodies. Skill requests are a few kilobytes.
const maxRequestBytes = 64 * 1024

// Lister is the part of a remote collection the preview needs.
type Lister interface {
	List(ctx context.Context) ([]models.RemoteItem, error)
}

// LoadResponder lists the collection and, when manifestPath is set, reads
// the manifest for item titles.
func LoadResponder(ctx context.Context, lister Lister, manifestPath string) (*Responder, error) {
	items, err := lister.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing remote items: %w", err)
	}

	var m *assetsync.Manifest

	if manifestPath != "" {
		m, err = assetsync.LoadManifest(manifestPath)
		if err != nil {
			return nil, err
		}
	}

	return NewResponder(items, m), nil
}

// webhookRequest holds the fields echoed back to the platform.
type webhookRequest struct {
	Session json.RawMessage `json:"session"`
	Version string          `json:"version"`
}

type webhookResponse struct {
	Response Response        `json:"response"`
	Session  json.RawMessage `json:"session,omitempty"`
	Version  string          `json:"version"`
}

// MuxConfig holds dependencies for building the HTTP mux.
type MuxConfig struct {
	Responder *Responder
	Logger    *slog.Logger
}

// NewMux builds the webhook mux. Any POST path is treated as the webhook.
func NewMux(cfg MuxConfig) *http.ServeMux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /", handleWebhook(cfg.Responder, logger))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func handleWebhook(r *Responder, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")

		body, err := io.ReadAll(io.LimitReader(req.Body, maxRequestBytes))
		if err != nil {
			http.Error(w, "reading request", http.StatusBadRequest)
			return
		}

		var in webhookRequest
		if err := json.Unmarshal(body, &in); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}

		out := webhookResponse{
			Response: r.Next(),
			Session:  in.Session,
			Version:  in.Version,
		}

		logger.Debug("preview request", slog.String("text", out.Response.Text))

		w.Header().Set("Content-Type", "application/json")

		if err := json.NewEncoder(w).Encode(out); err != nil {
			logger.Warn("writing preview response", slog.String("error", err.Error()))
		}
	}
}

// Serve runs the webhook on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down preview server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("preview server listening", slog.String("listen", addr))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("preview server error: %w", err)
	}

	return nil
}
