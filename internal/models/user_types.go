package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// User is the document stored in the 'users' collection.
// Cart and wishlist are embedded so a single write replaces either list.
type User struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name"`
	Number       string             `json:"number" bson:"number"`
	Email        string             `json:"email" bson:"email"`
	PasswordHash string             `json:"-" bson:"password"`

	// IsAdmin is the only source of administrator identity.
	IsAdmin bool `json:"isAdmin" bson:"isAdmin"`
	Blocked bool `json:"blocked" bson:"blocked"`

	Cart     Cart     `json:"cart" bson:"cart"`
	Wishlist Wishlist `json:"wishlist" bson:"wishlist"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Password Helper (Standard)
type Password struct {
	Plaintext *string
	Hash      string
}

func (p *Password) Set(plaintextPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintextPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.Hash = string(hash)
	p.Plaintext = &plaintextPassword
	return nil
}

func (p *Password) Matches(plaintextPassword string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(p.Hash), []byte(plaintextPassword))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// UserUpdate carries the administrator-editable fields of a user.
// Nil fields are left untouched.
type UserUpdate struct {
	Name    *string `json:"name"`
	Number  *string `json:"number"`
	Email   *string `json:"email" binding:"omitempty,email"`
	Blocked *bool   `json:"blocked"`
	IsAdmin *bool   `json:"isAdmin"`
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Number == nil && u.Email == nil && u.Blocked == nil && u.IsAdmin == nil
}
