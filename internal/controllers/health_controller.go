package controllers

import (
	"cgd/internal/guard"
	"cgd/internal/store"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

type HealthController struct {
	store     *store.Store
	limiter   guard.LimiterInterface
	startTime time.Time
}

type healthResponse struct {
	Status        string  `json:"status"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Database      string  `json:"database"`
	RateBuckets   int     `json:"rate_buckets"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	status := http.StatusOK
	dbState := "ok"
	if err := hc.store.Ping(r.Context()); err != nil {
		status = http.StatusServiceUnavailable
		dbState = "error"
	}

	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:        "ok",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		Database:      dbState,
		RateBuckets:   hc.limiter.Len(),
	}
	if dbState != "ok" {
		resp.Status = "degraded"
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(store *store.Store, limiter guard.LimiterInterface) *HealthController {
	return &HealthController{
		store:     store,
		limiter:   limiter,
		startTime: time.Now(),
	}
}
