package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"contractsearch-engine/internal/config"
)

func (d Deps) currentConfig() (config.Config, bool) {
	if d.CfgVal == nil {
		return config.Config{}, false
	}
	cfg, ok := d.CfgVal.Load().(config.Config)
	return cfg, ok
}

func (d Deps) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, ok := d.currentConfig()
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "internal", "configuration not loaded")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (d Deps) handleConfigPath(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"path": d.CfgPath})
}

// handlePutConfig validates, saves atomically and hot-swaps the running
// config. In-flight searches keep the source snapshot they started with.
func (d Deps) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var incoming config.Config
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&incoming); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "malformed config: "+err.Error())
		return
	}

	normalized, vr := config.NormalizeAndValidate(incoming)
	if !vr.OK() {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid_config", strings.Join(vr.Errors, "; "))
		return
	}

	if err := config.SaveAtomic(d.CfgPath, normalized); err != nil {
		writeMappedError(w, r, err)
		return
	}
	d.CfgVal.Store(normalized)

	writeJSON(w, http.StatusOK, map[string]any{
		"saved":    true,
		"warnings": vr.Warnings,
	})
}

type secretRequest struct {
	Source   string `json:"source"`
	Password string `json:"password"`
}

func validSource(name string) bool {
	for _, s := range config.SourceOrder {
		if s == name {
			return true
		}
	}
	return false
}

func (d Deps) handleSetSecret(w http.ResponseWriter, r *http.Request) {
	var req secretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if !validSource(req.Source) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "unknown source: "+req.Source)
		return
	}
	if req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "password is empty")
		return
	}
	if err := d.Secrets.Set(req.Source, req.Password); err != nil {
		writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

func (d Deps) handleDeleteSecret(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if !validSource(source) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "unknown source: "+source)
		return
	}
	if err := d.Secrets.Delete(source); err != nil {
		writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
