package httpapi

import (
	"encoding/json"
	"net/http"

	"contractsearch-engine/internal/domain"
)

type createSearchResponse struct {
	SearchID      string        `json:"search_id"`
	Status        domain.Status `json:"status"`
	ActiveSources []string      `json:"active_sources"`
}

// handleCreateSearch validates, persists and queues a search, replying as
// soon as the job is accepted. The client polls progress from here on.
func (d Deps) handleCreateSearch(w http.ResponseWriter, r *http.Request) {
	var req domain.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	job, err := d.Searches.CreateJob(r.Context(), req)
	if err != nil {
		writeMappedError(w, r, err)
		return
	}

	if err := d.Queue.Submit(job); err != nil {
		// the job was already moved to the error state by the runner
		writeMappedError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, createSearchResponse{
		SearchID:      job.SearchID,
		Status:        job.Status,
		ActiveSources: job.SourceNames(),
	})
}

func (d Deps) handleProgress(w http.ResponseWriter, r *http.Request) {
	pv, err := d.Searches.GetProgress(r.Context(), r.PathValue("id"))
	if err != nil {
		writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pv)
}

func (d Deps) handleResults(w http.ResponseWriter, r *http.Request) {
	rv, err := d.Searches.GetResults(r.Context(), r.PathValue("id"))
	if err != nil {
		writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}
