package uzzap

import (
	"context"
	"errors"
	"time"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileConflict = errors.New("profile already exists")
)

type UserId string

type Profile struct {
	Id            UserId
	Username      string
	DisplayName   string
	AvatarUrl     string
	StatusMessage string
	CreatedAt     time.Time
	LastSeen      time.Time
}

// NullString distinguishes an omitted patch field from an explicit null.
// Omitted fields keep their stored value, explicit nulls clear it.
type NullString struct {
	Set   bool
	Valid bool
	Value string
}

func SetString(value string) NullString {
	return NullString{Set: true, Valid: true, Value: value}
}

func SetNull() NullString {
	return NullString{Set: true}
}

type ProfilePatch struct {
	DisplayName   NullString
	StatusMessage NullString
	AvatarUrl     NullString
}

func (p ProfilePatch) Empty() bool {
	return !p.DisplayName.Set && !p.StatusMessage.Set && !p.AvatarUrl.Set
}

// ApplyTo merges the patch into profile with the non-destructive semantics
// stores are required to implement.
func (p ProfilePatch) ApplyTo(profile *Profile) {
	if p.DisplayName.Set {
		profile.DisplayName = p.DisplayName.Value
	}
	if p.StatusMessage.Set {
		profile.StatusMessage = p.StatusMessage.Value
	}
	if p.AvatarUrl.Set {
		profile.AvatarUrl = p.AvatarUrl.Value
	}
}

type ProfileStore interface {
	// ByUserId returns ErrProfileNotFound for a missing row, never a
	// transport error for that case.
	ByUserId(ctx context.Context, userId UserId) (Profile, error)

	// Create inserts a new profile and returns the stored row.
	// Duplicate id or username yields ErrProfileConflict.
	Create(ctx context.Context, profile Profile) (Profile, error)

	// Update applies a non-destructive merge and returns the row as the
	// store accepted it. Missing row yields ErrProfileNotFound.
	Update(ctx context.Context, userId UserId, patch ProfilePatch) (Profile, error)

	TouchLastSeen(ctx context.Context, userId UserId) error
}

const usernamePrefix = "user_"
const usernameIdLength = 8

// DefaultUsername derives a provisioning username from the user id:
// prefix plus a fixed-length id slice. Unlikely to collide, not guaranteed
// unique; the store's uniqueness constraint has the last word.
func DefaultUsername(userId UserId) string {
	id := string(userId)
	if len(id) > usernameIdLength {
		id = id[:usernameIdLength]
	}
	return usernamePrefix + id
}

// DefaultProfile is the profile provisioned on first sync for a session
// that has no durable record yet.
func DefaultProfile(userId UserId) Profile {
	return Profile{
		Id:          userId,
		Username:    DefaultUsername(userId),
		DisplayName: "New User",
		AvatarUrl:   PlaceholderAvatarUrl(userId),
	}
}
