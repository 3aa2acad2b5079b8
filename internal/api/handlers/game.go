package handlers

import (
	"net/http"

	"github.com/gonadlabs/gooch-island/internal/utils"
)

// GameStats serves /api/game/stats. The landing page's canvas game once
// persisted a destruction counter here; the counter is disabled and the
// endpoint pinned to zero until it comes back.
func GameStats(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodPost:
		utils.JSON(w, http.StatusOK, map[string]any{
			"key":   "total_destroyed",
			"value": 0,
		})
	default:
		utils.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
