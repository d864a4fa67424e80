package persistent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/uzzapchat/uzzap"
)

func TestProfileStoreProvisionAndFetch(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
		return
	}
	assert := assert.New(t)
	ctx := context.Background()

	db := PgOpenTest(ctx)
	defer db.Close()

	store := &ProfileStore{DB: db}

	created, err := store.Create(ctx, uzzap.DefaultProfile("11111111-aaaa-bbbb-cccc-000000000001"))
	if !assert.NoError(err) {
		return
	}
	assert.Equal("user_11111111", created.Username)
	assert.Equal("New User", created.DisplayName)
	assert.False(created.CreatedAt.IsZero())
	assert.False(created.LastSeen.IsZero())

	fetched, err := store.ByUserId(ctx, created.Id)
	if !assert.NoError(err) {
		return
	}
	assert.Equal(created.Id, fetched.Id)
	assert.Equal(created.Username, fetched.Username)
	assert.Equal(created.DisplayName, fetched.DisplayName)
	assert.Equal(created.AvatarUrl, fetched.AvatarUrl)

	// same id again is a conflict
	_, err = store.Create(ctx, uzzap.DefaultProfile("11111111-aaaa-bbbb-cccc-000000000001"))
	assert.ErrorIs(err, uzzap.ErrProfileConflict)

	// same username under a different id is a conflict too
	colliding := uzzap.DefaultProfile("22222222-aaaa-bbbb-cccc-000000000002")
	colliding.Id = "33333333-aaaa-bbbb-cccc-000000000003"
	colliding.Username = created.Username
	_, err = store.Create(ctx, colliding)
	assert.ErrorIs(err, uzzap.ErrProfileConflict)
}

func TestProfileStoreByUserIdMissing(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
		return
	}
	assert := assert.New(t)
	ctx := context.Background()

	db := PgOpenTest(ctx)
	defer db.Close()

	store := &ProfileStore{DB: db}
	_, err := store.ByUserId(ctx, "99999999-dead-beef-dead-000000000000")
	assert.ErrorIs(err, uzzap.ErrProfileNotFound)
}

func TestProfileStoreUpdate(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
		return
	}
	assert := assert.New(t)
	ctx := context.Background()

	db := PgOpenTest(ctx)
	defer db.Close()

	store := &ProfileStore{DB: db}
	created, err := store.Create(ctx, uzzap.DefaultProfile("44444444-aaaa-bbbb-cccc-000000000004"))
	if !assert.NoError(err) {
		return
	}

	updated, err := store.Update(ctx, created.Id, uzzap.ProfilePatch{
		StatusMessage: uzzap.SetString("hi"),
	})
	if !assert.NoError(err) {
		return
	}
	assert.Equal("hi", updated.StatusMessage)
	assert.Equal(created.DisplayName, updated.DisplayName)
	assert.Equal(created.AvatarUrl, updated.AvatarUrl)
	assert.Equal(created.Username, updated.Username)

	// explicit null clears the stored value
	cleared, err := store.Update(ctx, created.Id, uzzap.ProfilePatch{
		DisplayName: uzzap.SetNull(),
	})
	if !assert.NoError(err) {
		return
	}
	assert.Equal("", cleared.DisplayName)
	assert.Equal("hi", cleared.StatusMessage)

	_, err = store.Update(ctx, "99999999-dead-beef-dead-000000000000", uzzap.ProfilePatch{
		StatusMessage: uzzap.SetString("hi"),
	})
	assert.ErrorIs(err, uzzap.ErrProfileNotFound)
}

func TestProfileStoreTouchLastSeen(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
		return
	}
	assert := assert.New(t)
	ctx := context.Background()

	db := PgOpenTest(ctx)
	defer db.Close()

	store := &ProfileStore{DB: db}
	created, err := store.Create(ctx, uzzap.DefaultProfile("55555555-aaaa-bbbb-cccc-000000000005"))
	if !assert.NoError(err) {
		return
	}

	err = store.TouchLastSeen(ctx, created.Id)
	assert.NoError(err)

	fetched, err := store.ByUserId(ctx, created.Id)
	if !assert.NoError(err) {
		return
	}
	assert.False(fetched.LastSeen.Before(created.LastSeen))

	err = store.TouchLastSeen(ctx, "99999999-dead-beef-dead-000000000000")
	assert.ErrorIs(err, uzzap.ErrProfileNotFound)
}
