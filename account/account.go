// Package account registers callers and resolves bearer tokens to the
// account that owns them.
package account

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Account is a registered caller with its remaining time budget in seconds.
// TimeLimit is written only by the quota ledger.
type Account struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Username  string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Token     string    `gorm:"uniqueIndex;size:64;not null" json:"token"`
	TimeLimit int64     `gorm:"not null;default:0;check:time_limit >= 0" json:"time_limit"`
	CreatedAt time.Time `json:"-"`
}

// TableName pins the table name.
func (Account) TableName() string { return "accounts" }

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// Principal returns the identity part of the account.
func (a *Account) Principal() Principal {
	return Principal{ID: a.ID, Username: a.Username}
}

// NewToken returns an opaque bearer credential: the hex SHA-256 of a random UUID.
func NewToken() string {
	return hashHex(uuid.NewString())
}

func hashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
