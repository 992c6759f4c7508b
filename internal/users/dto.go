package users

import (
	"github.com/google/uuid"

	"github.com/amaykorade/zakapay-hackathon/pkg/db/models"
)

// UserDTO is the creator summary returned alongside collections.
type UserDTO struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{ID: u.ID, Email: u.Email, Name: u.Name}
}
