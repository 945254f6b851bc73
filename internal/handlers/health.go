package handlers

import (
	"context"
	"net/http"
	"time"
)

const healthTimeout = 2 * time.Second

// Pinger is anything whose reachability the health check reports.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Healthz reports 200 when the database answers and 503 otherwise.
func Healthz(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, MessageResponse{Success: false, Message: "database unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "ok"})
	}
}
