package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jerbs/sinema-sub001/core"
)

type statsResponse struct {
	Stats  core.ProcessorStats        `json:"stats"`
	Recent []core.TaskExecutionRecord `json:"recent"`
}

func newRouter(reg *prom.Registry, p *core.EventProcessor) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})).Methods(http.MethodGet)
	r.HandleFunc("/stats", statsHandler(p)).Methods(http.MethodGet)
	return r
}

// statsHandler serves the processor snapshot plus the most recent task
// records; ?limit=N bounds the records (default 10).
func statsHandler(p *core.EventProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 10
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		w.Header().Set("Content-Type", "application/json")
		resp := statsResponse{Stats: p.Stats(), Recent: p.RecentTasks(limit)}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
