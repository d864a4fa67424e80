package persistent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tidwall/buntdb"
	"github.com/uzzapchat/uzzap"
)

// fallback when the access token carries no usable expiry
const sessionTTL = 30 * 24 * time.Hour

type Session struct {
	Id           string    `json:"id"`
	UserId       string    `json:"userId"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

func (s Session) ToDomain() uzzap.Session {
	return uzzap.Session{
		Id:           s.Id,
		UserId:       uzzap.UserId(s.UserId),
		Email:        s.Email,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		CreatedAt:    s.CreatedAt,
		ExpiresAt:    s.ExpiresAt,
	}
}

// SessionStore keeps at most one live record per access token. Records
// evict themselves when the token expires, so a session read back from the
// store is always inside its validity window.
type SessionStore struct {
	Buntdb *buntdb.DB
}

var _ uzzap.SessionStore = (*SessionStore)(nil)

func (s *SessionStore) RegisterNew(ctx context.Context, userId uzzap.UserId, email string,
	accessToken string, refreshToken string) (uzzap.Session, error) {
	now := time.Now().UTC()
	session := Session{
		Id:           uuid.New().String(),
		UserId:       string(userId),
		Email:        email,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		CreatedAt:    now,
		ExpiresAt:    tokenExpiry(accessToken, now),
	}
	serializedSession, err := json.Marshal(&session)
	if err != nil {
		return uzzap.Session{}, fmt.Errorf("session serialize: %w", err)
	}

	err = s.Buntdb.Update(func(tx *buntdb.Tx) error {
		expireOptions := &buntdb.SetOptions{Expires: true, TTL: session.ExpiresAt.Sub(now)}

		_, replaced, err := tx.Set("session_by_id:"+session.Id, session.AccessToken, expireOptions)
		if err != nil {
			return fmt.Errorf("set map session id to access token: %w", err)
		}
		if replaced {
			return fmt.Errorf("rarest uuid collision '%s' (not possible)", session.Id)
		}

		_, _, err = tx.Set("session:"+session.AccessToken, string(serializedSession), expireOptions)
		if err != nil {
			return fmt.Errorf("set session: %w", err)
		}
		return nil
	})
	if err != nil {
		return uzzap.Session{}, fmt.Errorf("bunt update: %w", err)
	}
	return session.ToDomain(), nil
}

func (s *SessionStore) ByToken(token string) (uzzap.Session, error) {
	var session Session
	err := s.Buntdb.View(func(tx *buntdb.Tx) error {
		serializedSession, err := tx.Get("session:" + token)
		if err != nil {
			return fmt.Errorf("get serialized session: %w", err)
		}
		if err := json.Unmarshal([]byte(serializedSession), &session); err != nil {
			return fmt.Errorf("deserialize session: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return uzzap.Session{}, uzzap.ErrSessionNotFound
		}
		return uzzap.Session{}, fmt.Errorf("buntdb view: %w", err)
	}
	return session.ToDomain(), nil
}

func (s *SessionStore) Invalidate(token string) error {
	err := s.Buntdb.Update(func(tx *buntdb.Tx) error {
		serializedSession, err := tx.Delete("session:" + token)
		if err != nil {
			return fmt.Errorf("delete session key: %w", err)
		}
		var session Session
		if err := json.Unmarshal([]byte(serializedSession), &session); err != nil {
			return fmt.Errorf("deserialize deleted session: %w", err)
		}
		_, err = tx.Delete("session_by_id:" + session.Id)
		if err != nil {
			return fmt.Errorf("delete session id key: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return uzzap.ErrSessionNotFound
		}
		return fmt.Errorf("bunt update: %w", err)
	}
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature. The
// provider signed the token; the store only schedules eviction by it.
func tokenExpiry(accessToken string, now time.Time) time.Time {
	fallback := now.Add(sessionTTL)

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return fallback
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil || !exp.Time.After(now) {
		return fallback
	}
	return exp.Time.UTC()
}
