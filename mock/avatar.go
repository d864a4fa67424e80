package mock

import (
	"context"

	"github.com/uzzapchat/uzzap"
)

type AvatarService struct {
	UploadFn func(ctx context.Context, userId uzzap.UserId, content []byte, extensionHint string) (string, error)
}

func (s AvatarService) Upload(ctx context.Context, userId uzzap.UserId,
	content []byte, extensionHint string) (string, error) {
	return s.UploadFn(ctx, userId, content, extensionHint)
}
