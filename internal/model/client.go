package model

import "time"

// Client is a guest that can be seated.  CI is the identity document
// number and is unique across clients.
type Client struct {
	ID          uint64    `json:"id"`           // clients.id
	Fullname    string    `json:"fullname"`     // clients.fullname
	CI          string    `json:"ci"`           // clients.ci
	PhoneNumber string    `json:"phone_number"` // clients.phone_number
	CreatedAt   time.Time `json:"created_at"`   // clients.created_at
	UpdatedAt   time.Time `json:"updated_at"`   // clients.updated_at
}
