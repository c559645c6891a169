package service

import (
	"time"

	"gatehouse/internal/identity/models"
	id "gatehouse/pkg/domain"
)

type AuthResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	User        *UserView `json:"user"`
}

type SocietyRef struct {
	ID   id.SocietyID `json:"id"`
	Slug string       `json:"slug"`
	Name string       `json:"name"`
}

// UserView is the client representation of an account. Role is the primary
// role; Roles lists every role the account acts in.
type UserView struct {
	ID         id.UserID      `json:"id"`
	Email      string         `json:"email"`
	FullName   string         `json:"full_name"`
	Role       string         `json:"role"`
	Roles      []string       `json:"roles"`
	Phone      string         `json:"phone,omitempty"`
	FlatNumber string         `json:"flat_number,omitempty"`
	SocietyID  *id.SocietyID  `json:"society_id,omitempty"`
	BuildingID *id.BuildingID `json:"building_id,omitempty"`
	IsActive   bool           `json:"is_active"`
	CreatedAt  time.Time      `json:"created_at"`
	Society    *SocietyRef    `json:"society,omitempty"`
}

func newUserView(u *models.User) *UserView {
	roles := u.Roles()
	view := &UserView{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		Role:       string(u.Role),
		Roles:      roleNames(roles),
		Phone:      u.Phone,
		FlatNumber: u.FlatNumber,
		BuildingID: u.BuildingID,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
	}
	if !u.SocietyID.IsNil() {
		societyID := u.SocietyID
		view.SocietyID = &societyID
	}
	return view
}

func roleNames(set models.RoleSet) []string {
	roles := set.Roles()
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}
