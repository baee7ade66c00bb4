package users

import (
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound             = errors.New("resource not found")
	ErrDuplicateEmail       = errors.New("a user with that email already exists")
	ErrDuplicatePhoneNumber = errors.New("a user with that phone number already exists")
	QueryTimeoutDuration    = time.Second * 5
)

type User struct {
	ID                int64          `json:"id"`
	FullName          string         `json:"full_name"`
	Email             string         `json:"email"`
	Phone             string         `json:"phone"`
	Password          password       `json:"-"`
	ProfilePictureURL sql.NullString `json:"profile_picture_url" swaggertype:"string"`
	RefreshToken      string         `json:"-"`
	IsActive          bool           `json:"is_active"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// password keeps the plaintext out of JSON and the hash out of handler code.
type password struct {
	text *string `json:"-"`
	hash []byte  `json:"-"`
}

func (p *password) Set(text string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(text), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	p.text = &text
	p.hash = hash

	return nil
}

func (p *password) Compare(text string) error {
	return bcrypt.CompareHashAndPassword(p.hash, []byte(text))
}
