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
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/weldvault/qualify-cli/internal/model"
	"github.com/weldvault/qualify-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve derivation over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		limiter := rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst)

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/codes", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, a.Registry.IDs())
		})

		r.Post("/derive", func(w http.ResponseWriter, req *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			var body struct {
				FormType string       `json:"form_type"`
				Record   model.Record `json:"record"`
				Codes    []string     `json:"codes"`
				Save     bool         `json:"save"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			if body.FormType == "" {
				writeError(w, http.StatusBadRequest, "form_type is required")
				return
			}

			result, err := a.Engine.Derive(req.Context(), body.Record, model.FormType(body.FormType), body.Codes)
			if err != nil {
				// Only an unknown code id reaches here; it is the caller's mistake.
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}

			var id string
			if body.Save {
				saved, err := a.Store.SaveDerivation(req.Context(), body.Record, result)
				if err != nil {
					zap.L().Error("save derivation", zap.Error(err))
					writeError(w, http.StatusInternalServerError, "failed to persist derivation")
					return
				}
				id = saved.ID
			}

			writeJSON(w, http.StatusOK, map[string]any{"id": id, "result": result})
		})

		r.Get("/derivations", func(w http.ResponseWriter, req *http.Request) {
			list, err := a.Store.ListDerivations(req.Context(), store.Filter{
				FormType: model.FormType(req.URL.Query().Get("form_type")),
			})
			if err != nil {
				zap.L().Error("list derivations", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "failed to list derivations")
				return
			}
			writeJSON(w, http.StatusOK, list)
		})

		r.Get("/derivations/{id}", func(w http.ResponseWriter, req *http.Request) {
			d, err := a.Store.GetDerivation(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeError(w, http.StatusNotFound, "derivation not found")
				return
			}
			writeJSON(w, http.StatusOK, d)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

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
			return eris.Wrap(err, "serve")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
