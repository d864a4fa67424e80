package inmem

import (
	"context"
	"sync"

	"github.com/uzzapchat/uzzap"
)

type AvatarStore struct {
	BaseUrl string

	objects map[string][]byte
	mutex   sync.RWMutex
}

func NewAvatarStore() AvatarStore {
	return AvatarStore{
		BaseUrl: "https://storage.uzzap.test",
		objects: map[string][]byte{},
		mutex:   sync.RWMutex{},
	}
}

func (s *AvatarStore) Upload(ctx context.Context, userId uzzap.UserId,
	content []byte, extensionHint string) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := uzzap.AvatarObjectKey(userId, extensionHint)
	stored := make([]byte, len(content))
	copy(stored, content)
	s.objects[key] = stored
	return s.BaseUrl + "/" + key, nil
}

func (s *AvatarStore) Object(key string) ([]byte, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	content, ok := s.objects[key]
	return content, ok
}

func (s *AvatarStore) ObjectCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.objects)
}
