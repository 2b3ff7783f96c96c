package models

import "time"

// AccessToken is the server-side record of an issued bearer token.
// The bearer string itself is never stored; ID matches the token's jti claim.
type AccessToken struct {
	ID         string     `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID     string     `gorm:"type:varchar(36);not null;index" json:"user_id"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	RevokedAt  *time.Time `json:"revoked_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// Active reports whether the token can still authenticate requests at now.
func (t *AccessToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
