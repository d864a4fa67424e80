package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/uzzapchat/uzzap"
)

type ProfileStore struct {
	profiles map[uzzap.UserId]uzzap.Profile
	mutex    sync.RWMutex
}

func NewProfileStore() ProfileStore {
	return ProfileStore{
		profiles: map[uzzap.UserId]uzzap.Profile{},
		mutex:    sync.RWMutex{},
	}
}

func (s *ProfileStore) ByUserId(ctx context.Context, userId uzzap.UserId) (uzzap.Profile, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	profile, ok := s.profiles[userId]
	if !ok {
		return uzzap.Profile{}, uzzap.ErrProfileNotFound
	}
	return profile, nil
}

func (s *ProfileStore) Create(ctx context.Context, profile uzzap.Profile) (uzzap.Profile, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.profiles[profile.Id]; ok {
		return uzzap.Profile{}, uzzap.ErrProfileConflict
	}
	for _, existing := range s.profiles {
		if existing.Username == profile.Username {
			return uzzap.Profile{}, uzzap.ErrProfileConflict
		}
	}

	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.LastSeen = now
	s.profiles[profile.Id] = profile
	return profile, nil
}

func (s *ProfileStore) Update(ctx context.Context, userId uzzap.UserId, patch uzzap.ProfilePatch) (uzzap.Profile, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	profile, ok := s.profiles[userId]
	if !ok {
		return uzzap.Profile{}, uzzap.ErrProfileNotFound
	}
	patch.ApplyTo(&profile)
	profile.LastSeen = time.Now().UTC()
	s.profiles[userId] = profile
	return profile, nil
}

func (s *ProfileStore) TouchLastSeen(ctx context.Context, userId uzzap.UserId) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	profile, ok := s.profiles[userId]
	if !ok {
		return uzzap.ErrProfileNotFound
	}
	profile.LastSeen = time.Now().UTC()
	s.profiles[userId] = profile
	return nil
}
