package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/opsgate/slb-mcp-gateway/internal/audit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func setupRoutes(r *chi.Mux, cfg Config, publisher *audit.Publisher, reg *prometheus.Registry) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"version": Version})
	})

	r.Handle(cfg.MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api", func(api chi.Router) {
		api.Use(requireAuthToken(cfg.AuthToken))

		api.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, publisher.Registry().Snapshot())
		})

		api.Get("/events/replay", func(w http.ResponseWriter, r *http.Request) {
			since := parseInt64(r.URL.Query().Get("since"), 0)
			limit := int(parseInt64(r.URL.Query().Get("limit"), 200))
			writeJSON(w, publisher.Replay(since, limit))
		})
	})

	r.Get("/events", sseHandler(publisher, cfg.AuthToken))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt64(raw string, def int64) int64 {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}
