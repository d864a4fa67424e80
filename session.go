package uzzap

import (
	"context"
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

type Session struct {
	Id           string
	UserId       UserId
	Email        string
	AccessToken  string
	RefreshToken string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

type SessionStore interface {
	RegisterNew(ctx context.Context, userId UserId, email string,
		accessToken string, refreshToken string) (Session, error)

	ByToken(token string) (Session, error)

	Invalidate(token string) error
}
