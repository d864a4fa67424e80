package mock

import (
	"context"

	"github.com/uzzapchat/uzzap"
)

type ProfileService struct {
	ByUserIdFn      func(ctx context.Context, userId uzzap.UserId) (uzzap.Profile, error)
	CreateFn        func(ctx context.Context, profile uzzap.Profile) (uzzap.Profile, error)
	UpdateFn        func(ctx context.Context, userId uzzap.UserId, patch uzzap.ProfilePatch) (uzzap.Profile, error)
	TouchLastSeenFn func(ctx context.Context, userId uzzap.UserId) error
}

func (s ProfileService) ByUserId(ctx context.Context, userId uzzap.UserId) (uzzap.Profile, error) {
	return s.ByUserIdFn(ctx, userId)
}

func (s ProfileService) Create(ctx context.Context, profile uzzap.Profile) (uzzap.Profile, error) {
	return s.CreateFn(ctx, profile)
}

func (s ProfileService) Update(ctx context.Context, userId uzzap.UserId, patch uzzap.ProfilePatch) (uzzap.Profile, error) {
	return s.UpdateFn(ctx, userId, patch)
}

func (s ProfileService) TouchLastSeen(ctx context.Context, userId uzzap.UserId) error {
	if s.TouchLastSeenFn == nil {
		return nil
	}
	return s.TouchLastSeenFn(ctx, userId)
}
