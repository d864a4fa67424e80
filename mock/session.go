package mock

import (
	"context"

	"github.com/uzzapchat/uzzap"
)

type SessionService struct {
	RegisterNewFn func(ctx context.Context, userId uzzap.UserId, email string,
		accessToken string, refreshToken string) (uzzap.Session, error)
	ByTokenFn    func(token string) (uzzap.Session, error)
	InvalidateFn func(token string) error
}

func (s SessionService) RegisterNew(ctx context.Context, userId uzzap.UserId, email string,
	accessToken string, refreshToken string) (uzzap.Session, error) {
	return s.RegisterNewFn(ctx, userId, email, accessToken, refreshToken)
}

func (s SessionService) ByToken(token string) (uzzap.Session, error) {
	return s.ByTokenFn(token)
}

func (s SessionService) Invalidate(token string) error {
	return s.InvalidateFn(token)
}
