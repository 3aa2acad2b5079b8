package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gonadlabs/gooch-island/internal/api/middleware"
	"github.com/gonadlabs/gooch-island/internal/config"
	"github.com/gonadlabs/gooch-island/internal/repositories"
	"github.com/gonadlabs/gooch-island/internal/siwe"
	"github.com/gonadlabs/gooch-island/internal/utils"
)

type joinRequest struct {
	Address   string `json:"address,omitempty"`
	Message   string `json:"message,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// verifiedAddress is the single canonical result both authentication paths
// resolve to before any whitelist business logic runs.
type verifiedAddress struct {
	Address    string
	AuthMethod string // "jwt" or "signature"
	Provenance *repositories.SignatureProvenance
}

// resolveAuthProof accepts either a bearer token or a raw signed-message
// triple. A present-but-bad token is 401; everything else that fails is 400.
func resolveAuthProof(r *http.Request, body joinRequest) (*verifiedAddress, int, string) {
	if token := middleware.BearerToken(r); token != "" {
		address, err := Sessions.Verify(token)
		if err != nil {
			return nil, http.StatusUnauthorized, "Invalid or expired token"
		}
		// A caller may not join an address other than the one their
		// token authenticates.
		if body.Address != "" && !strings.EqualFold(body.Address, address) {
			return nil, http.StatusBadRequest, "Address does not match authenticated session"
		}
		return &verifiedAddress{Address: address, AuthMethod: "jwt"}, 0, ""
	}

	if body.Address == "" || body.Message == "" || body.Signature == "" {
		return nil, http.StatusBadRequest, "Missing required fields: address, message, signature"
	}
	if !siwe.Verify(body.Address, body.Message, body.Signature) {
		return nil, http.StatusBadRequest, "Invalid signature"
	}
	if !strings.Contains(body.Message, siwe.WhitelistPreamble) {
		return nil, http.StatusBadRequest, "Invalid message content"
	}
	// Unlike the auth path, the legacy join path has never enforced a
	// timestamp freshness window. Kept that way deliberately: adding one
	// would invalidate payloads old clients still hold. See DESIGN.md.
	return &verifiedAddress{
		Address:    strings.ToLower(body.Address),
		AuthMethod: "signature",
		Provenance: &repositories.SignatureProvenance{
			Message:   body.Message,
			Signature: body.Signature,
			Purpose:   "whitelist",
			IPAddress: utils.ClientIP(r),
			UserAgent: r.UserAgent(),
		},
	}, 0, ""
}

// Whitelist dispatches /api/whitelist: POST joins, GET checks membership.
func Whitelist(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		joinWhitelist(w, r)
	case http.MethodGet:
		checkWhitelist(w, r)
	default:
		utils.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// POST /api/whitelist
func joinWhitelist(w http.ResponseWriter, r *http.Request) {
	var body joinRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		utils.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	proof, status, msg := resolveAuthProof(r, body)
	if proof == nil {
		utils.Error(w, status, msg)
		return
	}

	entry, err := repositories.AddToWhitelist(
		proof.Address,
		config.Envs.Collection,
		proof.Provenance,
		"standard",
		proof.AuthMethod,
	)
	if err != nil {
		log.Println("Whitelist: join failed:", err)
		utils.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Successfully added to whitelist",
		"data": map[string]any{
			"address":    proof.Address,
			"tier":       entry.Tier,
			"timestamp":  entry.CreatedAt,
			"authMethod": proof.AuthMethod,
		},
	})
}

// GET /api/whitelist?address=&collection=
func checkWhitelist(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	collection := r.URL.Query().Get("collection")
	if collection == "" {
		collection = config.Envs.Collection
	}
	if address == "" {
		utils.Error(w, http.StatusBadRequest, "Address parameter required")
		return
	}

	whitelisted, err := repositories.IsWhitelisted(address, collection)
	if err != nil {
		log.Println("Whitelist: status check failed:", err)
		utils.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	var data map[string]any
	if whitelisted {
		if user, err := repositories.GetUserByAddress(address); err == nil {
			for _, entry := range user.WhitelistEntries {
				if entry.Collection.Name == collection {
					data = map[string]any{
						"tier":     entry.Tier,
						"joinedAt": entry.CreatedAt,
					}
					break
				}
			}
		}
	}

	utils.JSON(w, http.StatusOK, map[string]any{
		"address":       address,
		"collection":    collection,
		"isWhitelisted": whitelisted,
		"data":          data,
	})
}

// GET /api/whitelist/stats?collection=
func WhitelistStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
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
		log.Println("Whitelist: stats failed:", err)
		utils.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.JSON(w, http.StatusOK, map[string]any{
		"collection": collection,
		"stats": map[string]any{
			"total":       stats.Total,
			"byTier":      stats.ByTier,
			"recentCount": len(stats.RecentJoins),
		},
	})
}
