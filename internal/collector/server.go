// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package collector

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/gps_simulator/internal/gps"
)

// DefaultRequestTimeout bounds /api handling, fault delay included.
const DefaultRequestTimeout = 5 * time.Second

// maxSubmitBytes caps a submission body; a fix is a few hundred bytes.
const maxSubmitBytes = 16 << 10

type RouterOptions struct {
	RequestTimeout time.Duration
	// Viewers serves /ws when set.
	Viewers http.Handler
	// StaticDir is served at / when it exists.
	StaticDir string
	Logger    *log.Logger
}

type submitResponse struct {
	Status        string `json:"status"`
	StoredEntries int    `json:"stored_entries,omitempty"`
	Error         string `json:"error,omitempty"`
}

// NewRouter wires the collector's HTTP surface around svc.
func NewRouter(svc *Service, opts RouterOptions) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	h := &handlers{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// websocket connections outlive the request timeout
	if opts.Viewers != nil {
		r.Handle("/ws", opts.Viewers)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(opts.RequestTimeout))
		r.Post("/gps", h.submit)
		r.Get("/history", h.history)
	})

	if opts.StaticDir != "" {
		if fi, err := os.Stat(opts.StaticDir); err == nil && fi.IsDir() {
			r.Handle("/*", http.FileServer(http.Dir(opts.StaticDir)))
		} else {
			logger.Printf("collector: static dir %q not found, serving API only", opts.StaticDir)
		}
	}
	return r
}

type handlers struct {
	svc    *Service
	logger *log.Logger
}

func (h *handlers) submit(w http.ResponseWriter, r *http.Request) {
	simulateIssues := strings.EqualFold(r.URL.Query().Get("simulate_issues"), "true")

	r.Body = http.MaxBytesReader(w, r.Body, maxSubmitBytes)
	f, err := gps.Decode(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, submitResponse{Status: "invalid", Error: err.Error()})
			return
		}
		h.reject(w, err)
		return
	}

	receipt, err := h.svc.Submit(r.Context(), f, simulateIssues)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, submitResponse{Status: "success", StoredEntries: receipt.Stored})
	case errors.Is(err, ErrInvalidFix):
		h.reject(w, err)
	case errors.Is(err, ErrPacketLost):
		writeJSON(w, http.StatusRequestTimeout, submitResponse{Status: "packet_lost"})
	case errors.Is(err, context.DeadlineExceeded):
		// the Timeout middleware answers 504
		h.logger.Printf("collector: submission from %s timed out", f.DeviceID)
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		h.logger.Printf("collector: submit error: %v", err)
		writeJSON(w, http.StatusInternalServerError, submitResponse{Status: "error", Error: err.Error()})
	}
}

func (h *handlers) reject(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, submitResponse{Status: "invalid", Error: err.Error()})
}

func (h *handlers) history(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.History())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("collector: json encode error: %v", err)
	}
}
