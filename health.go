package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	logx "github.com/Natthapon12-yod/smartatsai/pkg/logger"
)

type healthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis,omitempty"`
}

// newHealthHandler serves GET /healthz. Redis is pinged only when the bot
// uses it; a failed ping answers 503.
func newHealthHandler(rdb *redis.Client) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		code := http.StatusOK
		if rdb != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := rdb.Ping(ctx).Err(); err != nil {
				logx.Warn().Err(err).Msg("health check: redis ping failed")
				resp.Status, resp.Redis = "degraded", "unreachable"
				code = http.StatusServiceUnavailable
			} else {
				resp.Redis = "ok"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	})
	return mux
}
