package uzzap

import (
	"context"
	"errors"
	"strings"
)

var ErrAvatarUpload = errors.New("avatar upload failed")

type AvatarStore interface {
	// Upload stores content under the user's canonical avatar key and
	// returns a publicly resolvable url. Failures wrap ErrAvatarUpload;
	// there is no partial-file recovery, callers retry the whole upload.
	Upload(ctx context.Context, userId UserId, content []byte, extensionHint string) (string, error)
}

// AvatarObjectKey derives the storage key for a user's avatar. One
// canonical slot per user: re-uploading overwrites in place.
func AvatarObjectKey(userId UserId, extensionHint string) string {
	ext := strings.TrimPrefix(extensionHint, ".")
	return "avatars/" + string(userId) + "." + ext
}

// PlaceholderAvatarUrl is the generated avatar a provisioned profile
// starts with, seeded by the user id.
func PlaceholderAvatarUrl(userId UserId) string {
	return "https://api.dicebear.com/7.x/avataaars/svg?seed=" + string(userId)
}
