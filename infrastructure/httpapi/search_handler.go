package httpapi

import (
	"chat-relay/repositories"
	"log/slog"
	"net/http"
	"strconv"
)

const defaultSearchLimit = 10

// SearchHandler queries the full-text message index. The index is a
// projection of the durable log; a miss here never means the message is
// gone from history.
type SearchHandler struct {
	index *repositories.MessageIndex
	log   *slog.Logger
}

func NewSearchHandler(index *repositories.MessageIndex, log *slog.Logger) *SearchHandler {
	return &SearchHandler{index: index, log: log}
}

// Search handles GET /api/search?q=terms[&channel=room:general][&limit=N].
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	terms := r.URL.Query().Get("q")
	if terms == "" {
		writeError(w, http.StatusBadRequest, "missing q parameter")
		return
	}
	channel := r.URL.Query().Get("channel")

	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	hits, err := h.index.Search(r.Context(), terms, channel, limit)
	if err != nil {
		h.log.Error("Search failed", "terms", terms, "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if hits == nil {
		hits = []repositories.SearchHit{}
	}
	writeJSON(w, http.StatusOK, hits)
}
