package repositories

import (
	"strings"

	"github.com/gonadlabs/gooch-island/internal/models"
)

// LinkDiscord stores the Discord handle on an existing user, creating the
// row if the address has never been seen.
func LinkDiscord(address, handle string) (*models.User, error) {
	user, err := CreateOrUpdateUser(address)
	if err != nil {
		return nil, err
	}
	err = DB.Model(user).Update("discord", strings.TrimSpace(handle)).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}
