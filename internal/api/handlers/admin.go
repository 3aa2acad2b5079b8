package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gonadlabs/gooch-island/internal/config"
	"github.com/gonadlabs/gooch-island/internal/repositories"
	"github.com/gonadlabs/gooch-island/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// adminAuthorized checks the X-Admin-Key header against the bcrypt hash in
// config. No hash configured means the admin surface is closed.
func adminAuthorized(r *http.Request) bool {
	hash := config.Envs.AdminKeyHash
	if hash == "" {
		return false
	}
	key := r.Header.Get("X-Admin-Key")
	if key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}

// GET /api/admin/entries?collection=
//
// Operator view backing the admin page: totals, tier breakdown and the most
// recent joins for a collection.
func AdminEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !adminAuthorized(r) {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	collection := r.URL.Query().Get("collection")
	if collection == "" {
		collection = config.Envs.Collection
	}

	stats, err := repositories.GetWhitelistStats(collection)
	if errors.Is(err, repositories.ErrCollectionNotFound) {
		utils.Error(w, http.StatusNotFound, "Collection not found")
		return
	}
	if err != nil {
		log.Println("Admin: entries failed:", err)
		utils.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.JSON(w, http.StatusOK, map[string]any{
		"collection":  collection,
		"total":       stats.Total,
		"byTier":      stats.ByTier,
		"recentJoins": stats.RecentJoins,
	})
}
