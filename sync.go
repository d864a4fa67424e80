package uzzap

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotSynced is returned by mutating operations invoked before a
// successful Sync established a cached profile.
var ErrNotSynced = errors.New("profile not synchronized")

type SyncState int

const (
	SyncIdle SyncState = iota
	SyncLoading
	SyncProvisioning
	SyncReady
	SyncMutating
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncIdle:
		return "idle"
	case SyncLoading:
		return "loading"
	case SyncProvisioning:
		return "provisioning"
	case SyncReady:
		return "ready"
	case SyncMutating:
		return "mutating"
	case SyncError:
		return "error"
	default:
		return "unknown"
	}
}

// ProfileSync reconciles a session with its durable profile record and
// applies partial updates to it. It guards a single cached profile with an
// exclusive lock, so at most one operation per flow is in flight and the
// cache only ever holds server-accepted state.
type ProfileSync struct {
	Profiles ProfileStore
	Avatars  AvatarStore

	// OnTransition, if set, observes every state change in order.
	// It is called with the flow lock held and must not call back in.
	OnTransition func(from, to SyncState)

	mu     sync.Mutex
	state  SyncState
	userId UserId
	cached *Profile
}

func NewProfileSync(profiles ProfileStore, avatars AvatarStore) *ProfileSync {
	return &ProfileSync{Profiles: profiles, Avatars: avatars}
}

func (f *ProfileSync) State() SyncState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Cached returns the last server-accepted profile, if any. The returned
// value is a copy; presentation code may read it freely.
func (f *ProfileSync) Cached() (Profile, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cached == nil {
		return Profile{}, false
	}
	return *f.cached, true
}

// Sync guarantees a profile exists for the session: it fetches the durable
// record and, on first run, provisions a default one. Re-invoking Sync is
// also the recovery path out of the error state.
//
// A conflicting username during provisioning is surfaced as
// ErrProfileConflict without retrying the create: a second insert after an
// ambiguous failure could provision twice.
func (f *ProfileSync) Sync(ctx context.Context, session Session) (Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if session.UserId == "" {
		return Profile{}, errors.New("no authenticated user")
	}
	if f.userId != session.UserId {
		// identity changed, the previous cache is not ours anymore
		f.cached = nil
		f.userId = session.UserId
	}
	f.transition(SyncLoading)

	profile, err := f.Profiles.ByUserId(ctx, session.UserId)
	switch {
	case err == nil:
		f.cached = &profile
		f.transition(SyncReady)
		// presence is cosmetic, a failed touch must not fail the sync
		_ = f.Profiles.TouchLastSeen(ctx, session.UserId)
		return profile, nil
	case errors.Is(err, ErrProfileNotFound):
		// first sync for this user, fall through to provisioning
	default:
		f.transition(SyncError)
		return Profile{}, fmt.Errorf("fetch profile: %w", err)
	}

	f.transition(SyncProvisioning)
	created, err := f.Profiles.Create(ctx, DefaultProfile(session.UserId))
	if err != nil {
		f.transition(SyncError)
		return Profile{}, fmt.Errorf("provision profile: %w", err)
	}
	f.cached = &created
	f.transition(SyncReady)
	return created, nil
}

// Update applies a partial update and replaces the cache with the row as
// the store accepted it. On failure the cache keeps its previous value.
func (f *ProfileSync) Update(ctx context.Context, patch ProfilePatch) (Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.update(ctx, patch)
}

// UpdateAvatar uploads the image first and only then updates the profile,
// so avatar_url never references content that was not confirmed stored.
// An upload failure aborts before any profile mutation and leaves the flow
// ready for another attempt.
func (f *ProfileSync) UpdateAvatar(ctx context.Context, content []byte, extensionHint string) (Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != SyncReady || f.cached == nil {
		return Profile{}, ErrNotSynced
	}
	url, err := f.Avatars.Upload(ctx, f.userId, content, extensionHint)
	if err != nil {
		return Profile{}, fmt.Errorf("upload avatar: %w", err)
	}
	return f.update(ctx, ProfilePatch{AvatarUrl: SetString(url)})
}

// update runs the Ready -> Mutating -> Ready leg. Callers hold f.mu.
func (f *ProfileSync) update(ctx context.Context, patch ProfilePatch) (Profile, error) {
	if f.state != SyncReady || f.cached == nil {
		return Profile{}, ErrNotSynced
	}
	f.transition(SyncMutating)
	updated, err := f.Profiles.Update(ctx, f.userId, patch)
	if err != nil {
		f.transition(SyncError)
		return Profile{}, fmt.Errorf("update profile: %w", err)
	}
	f.cached = &updated
	f.transition(SyncReady)
	return updated, nil
}

func (f *ProfileSync) transition(to SyncState) {
	from := f.state
	f.state = to
	if f.OnTransition != nil {
		f.OnTransition(from, to)
	}
}
