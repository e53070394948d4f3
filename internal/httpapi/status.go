package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type statusResponse struct {
	Status    string `json:"status"`
	StartTime string `json:"start_time"`
	Uptime    string `json:"uptime"`
}

// statusHandler reports server start time and uptime, ported from
// handlers/status.py's get_server_status.
func statusHandler(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := time.Since(deps.StartTime)

		resp := statusResponse{
			Status:    "ok",
			StartTime: deps.StartTime.UTC().Format("2006-01-02T15:04:05.000000Z"),
			Uptime:    formatUptime(uptime),
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
}
