package httpapi

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/bacchus320/snowflake/internal/utils"
)

const healthcheckTimeout = 2 * time.Second

// BrokerStatus reports the MQTT connection. A nil BrokerStatus omits the
// field from /healthz.
type BrokerStatus interface {
	IsConnected() bool
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	db     *sql.DB
	broker BrokerStatus
}

func NewHealthchecker(db *sql.DB, broker BrokerStatus) healthchecker {
	return &healthcheckerImpl{db: db, broker: broker}
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthcheckTimeout)
	defer cancel()

	var ok int
	if err := h.db.QueryRowContext(ctx, `SELECT 1`).Scan(&ok); err != nil {
		slog.Error("failed to check database connectivity", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check database connectivity")
		return
	}

	body := map[string]string{"status": "ok"}
	if h.broker != nil {
		body["mqtt"] = "disconnected"
		if h.broker.IsConnected() {
			body["mqtt"] = "connected"
		}
	}
	utils.WriteJSON(w, http.StatusOK, body)
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB, broker BrokerStatus) {
	healthchecker := NewHealthchecker(db, broker)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
