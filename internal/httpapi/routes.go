package httpapi

import "net/http"

// Routes builds the engine's mux. Method matching and {id} extraction come
// from net/http's pattern syntax; a method mismatch is a 405 for free.
func Routes(d Deps) http.Handler {
	if d.Secrets == nil {
		d.Secrets = keyringStore{}
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /searches", d.handleCreateSearch)
	mux.HandleFunc("GET /searches/{id}/progress", d.handleProgress)
	mux.HandleFunc("GET /searches/{id}/results", d.handleResults)

	mux.HandleFunc("GET /searchlog", d.handleSearchLog)
	mux.HandleFunc("GET /engine/status", d.handleEngineStatus)
	mux.HandleFunc("GET /events", d.handleEvents)
	mux.HandleFunc("GET /health", d.handleHealth)

	mux.HandleFunc("GET /config", d.handleGetConfig)
	mux.HandleFunc("PUT /config", d.handlePutConfig)
	mux.HandleFunc("GET /config/path", d.handleConfigPath)

	mux.HandleFunc("POST /secrets/source", d.handleSetSecret)
	mux.HandleFunc("DELETE /secrets/source", d.handleDeleteSecret)

	return mux
}
