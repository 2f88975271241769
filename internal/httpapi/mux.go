package httpapi

import (
	"database/sql"
	"net/http"
)

// NewMux registers the infrastructure routes. Feature modules add their
// own routes to the returned mux.
func NewMux(db *sql.DB, assets *Assets, broker BrokerStatus) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db, broker)
	registerAssets(mux, assets)
	return mux
}
