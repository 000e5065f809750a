package models

import "time"

// User maps an internal user id to the wallet that holds their reward
// tokens. The gateway needs the wallet address for every custody move.
type User struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Wallet    string    `db:"wallet" json:"wallet"` // base58 public key on Solana
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
