package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Age          *int      `json:"age,omitempty"`
	Mobile       string    `json:"mobile,omitempty"`
	ProfileImage string    `json:"profileImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicProfile is what other users get to see (event organizer, attendees).
type PublicProfile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	Mobile       string `json:"mobile,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// MinimalProfile is the organizer card used in event lists.
type MinimalProfile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ProfileImage string `json:"profileImage,omitempty"`
}

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

// ProfileUpdate carries the mutable profile fields; nil means unchanged.
type ProfileUpdate struct {
	Name         *string `json:"name" binding:"omitempty,min=1"`
	Email        *string `json:"email" binding:"omitempty,email"`
	Age          *int    `json:"age" binding:"omitempty,min=0"`
	Mobile       *string `json:"mobile"`
	ProfileImage *string `json:"profileImage"`
}

func (p ProfileUpdate) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Age == nil && p.Mobile == nil && p.ProfileImage == nil
}

func New(name, email, passwordHash string) User {
	now := time.Now().UTC()
	return User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (u User) Public() PublicProfile {
	return PublicProfile{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Mobile:       u.Mobile,
		ProfileImage: u.ProfileImage,
	}
}

func (u User) Minimal() MinimalProfile {
	return MinimalProfile{ID: u.ID, Name: u.Name, ProfileImage: u.ProfileImage}
}

// Apply copies the non-nil fields of p onto u.
func (u User) Apply(p ProfileUpdate) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Age != nil {
		age := *p.Age
		u.Age = &age
	}
	if p.Mobile != nil {
		u.Mobile = *p.Mobile
	}
	if p.ProfileImage != nil {
		u.ProfileImage = *p.ProfileImage
	}
	return u
}
