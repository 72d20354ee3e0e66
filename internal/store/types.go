package store

import "time"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"

	AuthSourceLocal = "local"
	AuthSourceLDAP  = "ldap"
)

type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	Department   string     `json:"department"`
	Position     string     `json:"position"`
	PasswordHash string     `json:"-"`
	Salt         string     `json:"-"`
	AuthSource   string     `json:"authSource"`
	DirectoryDN  string     `json:"-"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

type Session struct {
	Token     string
	UserID    string
	IP        string
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
}
