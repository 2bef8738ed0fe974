package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash []byte     `json:"password_hash,omitempty"`
	Profile      Profile    `json:"profile"`
	CreatedAt    *time.Time `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

// Profile holds the user editable part of a User.
type Profile struct {
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Country  string `json:"country,omitempty"`
	Language string `json:"language,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// Public returns a copy without credential material.
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.PasswordHash = nil
	return &cp
}

const OrderStatusActive = "Active"

// Order is an append-only history entry created after a successful checkout.
type Order struct {
	ID        string    `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	PlanID    int       `json:"plan_id"`
	PlanName  string    `json:"plan_name"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	Duration  string    `json:"duration"`
	Data      string    `json:"data"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// QRCode is the eSIM activation payload returned by the issuance adapter.
type QRCode struct {
	PlanID      int    `json:"plan_id"`
	Payload     string `json:"payload"`
	ContentType string `json:"content_type"`
	Image       []byte `json:"image"`
}
