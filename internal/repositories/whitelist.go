package repositories

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/gonadlabs/gooch-island/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrCollectionNotFound = errors.New("collection not found")

// SignatureProvenance carries the signed message that justified a whitelist
// entry, plus request metadata for the audit trail.
type SignatureProvenance struct {
	Message   string
	Signature string
	Purpose   string
	IPAddress string
	UserAgent string
}

// WhitelistStats summarizes a collection's whitelist.
type WhitelistStats struct {
	Total       int64                   `json:"total"`
	ByTier      map[string]int64        `json:"byTier"`
	RecentJoins []models.WhitelistEntry `json:"recentJoins"`
}

// CreateOrUpdateUser upserts the User row for an address.
func CreateOrUpdateUser(address string) (*models.User, error) {
	addr := strings.ToLower(address)
	var user models.User
	err := DB.Where(&models.User{Address: addr}).
		Attrs(models.User{Address: addr}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByAddress loads a user with whitelist entries (and their
// collections) plus the 10 most recent signatures. Returns
// gorm.ErrRecordNotFound for unknown addresses.
func GetUserByAddress(address string) (*models.User, error) {
	var user models.User
	err := DB.
		Preload("WhitelistEntries.Collection").
		Preload("Signatures", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Limit(10)
		}).
		Where("address = ?", strings.ToLower(address)).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// RecordSignature persists a verified signed message for a user.
func RecordSignature(userID uuid.UUID, prov SignatureProvenance) (*models.Signature, error) {
	sig := models.Signature{
		UserID:    userID,
		Message:   prov.Message,
		Signature: prov.Signature,
		Purpose:   prov.Purpose,
	}
	if prov.IPAddress != "" {
		sig.IPAddress = &prov.IPAddress
	}
	if prov.UserAgent != "" {
		sig.UserAgent = &prov.UserAgent
	}
	if err := DB.Create(&sig).Error; err != nil {
		return nil, err
	}
	return &sig, nil
}

// AddToWhitelist ensures user and collection rows exist, records the signed
// message when one is provided, and upserts the membership entry. The upsert
// is keyed on (user, collection): a repeat join updates tier, source and
// signature instead of duplicating or erroring.
func AddToWhitelist(address, collectionName string, prov *SignatureProvenance, tier, source string) (*models.WhitelistEntry, error) {
	user, err := CreateOrUpdateUser(address)
	if err != nil {
		return nil, err
	}

	var collection models.Collection
	err = DB.Where(&models.Collection{Name: collectionName}).
		Attrs(models.Collection{
			Name:        collectionName,
			DisplayName: titleCase(collectionName),
			IsActive:    true,
		}).
		FirstOrCreate(&collection).Error
	if err != nil {
		return nil, err
	}

	var signatureID *uuid.UUID
	if prov != nil {
		sig, err := RecordSignature(user.ID, *prov)
		if err != nil {
			return nil, err
		}
		signatureID = &sig.ID
	}

	entry := models.WhitelistEntry{
		UserID:       user.ID,
		CollectionID: collection.ID,
		Tier:         tier,
		Source:       source,
		SignatureID:  signatureID,
	}
	err = DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "collection_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"tier":         tier,
			"source":       source,
			"signature_id": signatureID,
			"updated_at":   time.Now(),
		}),
	}).Create(&entry).Error
	if err != nil {
		return nil, err
	}

	// Re-read so the caller sees the surviving row (the original createdAt
	// on a repeat join, not the discarded insert's).
	var result models.WhitelistEntry
	err = DB.Where("user_id = ? AND collection_id = ?", user.ID, collection.ID).
		First(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// IsWhitelisted reports membership. Unknown address or collection is a plain
// false, not an error.
func IsWhitelisted(address, collectionName string) (bool, error) {
	var user models.User
	err := DB.Where("address = ?", strings.ToLower(address)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var collection models.Collection
	err = DB.Where("name = ?", collectionName).First(&collection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var count int64
	err = DB.Model(&models.WhitelistEntry{}).
		Where("user_id = ? AND collection_id = ?", user.ID, collection.ID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetWhitelistStats returns totals, a tier breakdown and the 10 most recent
// entries. ErrCollectionNotFound for unknown collections.
func GetWhitelistStats(collectionName string) (*WhitelistStats, error) {
	var collection models.Collection
	err := DB.Where("name = ?", collectionName).First(&collection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCollectionNotFound
	}
	if err != nil {
		return nil, err
	}

	var entries []models.WhitelistEntry
	if err := DB.Where("collection_id = ?", collection.ID).Find(&entries).Error; err != nil {
		return nil, err
	}

	stats := &WhitelistStats{
		Total:  int64(len(entries)),
		ByTier: map[string]int64{},
	}
	for _, e := range entries {
		stats.ByTier[e.Tier]++
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if len(entries) > 10 {
		entries = entries[:10]
	}
	stats.RecentJoins = entries
	return stats, nil
}

// CreateSession records an issued bearer token for audit.
func CreateSession(userID uuid.UUID, token string, expiresAt time.Time, ipAddress, userAgent string) (*models.Session, error) {
	session := models.Session{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		IsActive:  true,
	}
	if ipAddress != "" {
		session.IPAddress = &ipAddress
	}
	if userAgent != "" {
		session.UserAgent = &userAgent
	}
	if err := DB.Create(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
