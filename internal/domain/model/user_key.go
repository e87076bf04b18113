package model

import "time"

// UserPublicKey is one member's registered public key. The fingerprint is
// a pure function of the key bytes and is recomputed, never stored
// independently of them.
type UserPublicKey struct {
	UserID      string    `json:"user_id"`
	PublicKey   []byte    `json:"public_key"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
