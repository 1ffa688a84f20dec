package handlers

import (
	"context"
	"net/http"
	"time"

	"assetverse/utils"
)

var startedAt = time.Now()

// Health reports liveness plus a database round trip.
func Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	dbStatus := "up"
	if err := userCollection.Database().Client().Ping(ctx, nil); err != nil {
		dbStatus = "down"
	}

	status := http.StatusOK
	if dbStatus == "down" {
		status = http.StatusServiceUnavailable
	}

	utils.RespondWithJSON(w, status, map[string]interface{}{
		"status":   "ok",
		"database": dbStatus,
		"uptime":   time.Since(startedAt).Round(time.Second).String(),
	})
}
