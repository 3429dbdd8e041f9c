package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"steuerpilot/pkg/logger"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// probe pings one backing store and reports how long it took.
type probe struct {
	name string
	ping func(ctx context.Context) error
}

// Handler serves the liveness, readiness and detailed health endpoints.
type Handler struct {
	log     *logger.Logger
	probes  []probe
	started time.Time
	service string
	version string
}

// New builds a handler probing Postgres and Redis. clickhouse may be nil
// when the analytics sink is disabled; it is only probed when present.
func New(
	log *logger.Logger,
	postgres *sqlx.DB,
	clickhouse driver.Conn,
	rdb *redis.Client,
	service string,
	version string,
) *Handler {
	probes := []probe{
		{name: "postgres", ping: postgres.PingContext},
		{name: "redis", ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	}
	if clickhouse != nil {
		probes = append(probes, probe{name: "clickhouse", ping: clickhouse.Ping})
	}
	return &Handler{
		log:     log,
		probes:  probes,
		started: time.Now(),
		service: service,
		version: version,
	}
}

type report struct {
	Status    string                 `json:"status"` // healthy, degraded, unhealthy
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]checkResult `json:"checks"`
}

type checkResult struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

// HandleLiveness answers as soon as the process is serving requests.
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HandleReadiness fails when any backing store is unreachable, taking the
// instance out of rotation until all stores answer again.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rep, healthy := h.run(ctx)

	code := http.StatusOK
	if healthy < len(h.probes) {
		rep.Status = "unhealthy"
		code = http.StatusServiceUnavailable
		h.log.Warnw("readiness check failed", "checks", rep.Checks)
	}
	writeJSON(w, code, rep)
}

// HandleHealth reports per-store detail. A partial outage is reported as
// degraded with a 200 so the instance keeps serving chat traffic.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	rep, healthy := h.run(ctx)

	code := http.StatusOK
	switch {
	case healthy == 0:
		rep.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	case healthy < len(h.probes):
		rep.Status = "degraded"
	}
	writeJSON(w, code, rep)
}

func (h *Handler) run(ctx context.Context) (report, int) {
	checks := make(map[string]checkResult, len(h.probes))
	healthy := 0

	for _, p := range h.probes {
		start := time.Now()
		err := p.ping(ctx)
		res := checkResult{Status: "healthy", ResponseTime: time.Since(start).String()}
		if err != nil {
			res.Status = "unhealthy"
			res.Error = err.Error()
			h.log.Errorw("store health check failed", "store", p.name, "error", err)
		} else {
			healthy++
		}
		checks[p.name] = res
	}

	return report{
		Status:    "healthy",
		Service:   h.service,
		Version:   h.version,
		Uptime:    time.Since(h.started).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    checks,
	}, healthy
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
