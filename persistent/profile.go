package persistent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uzzapchat/uzzap"
)

type Profile struct {
	bun.BaseModel `bun:"table:profile"`

	Id            string         `bun:",pk"`
	Username      string         `bun:",notnull,unique"`
	DisplayName   sql.NullString `bun:"display_name"`
	AvatarUrl     sql.NullString `bun:"avatar_url"`
	StatusMessage sql.NullString `bun:"status_message"`
	CreatedAt     time.Time      `bun:",nullzero,notnull,default:current_timestamp"`
	LastSeen      time.Time      `bun:",nullzero,notnull,default:current_timestamp"`
}

func (p Profile) ToDomain() uzzap.Profile {
	return uzzap.Profile{
		Id:            uzzap.UserId(p.Id),
		Username:      p.Username,
		DisplayName:   p.DisplayName.String,
		AvatarUrl:     p.AvatarUrl.String,
		StatusMessage: p.StatusMessage.String,
		CreatedAt:     p.CreatedAt,
		LastSeen:      p.LastSeen,
	}
}

type ProfileStore struct {
	DB *bun.DB
}

var _ uzzap.ProfileStore = (*ProfileStore)(nil)

func (s *ProfileStore) ByUserId(ctx context.Context, userId uzzap.UserId) (uzzap.Profile, error) {
	profile := new(Profile)
	err := s.DB.NewSelect().
		Model(profile).
		Where(`id=?`, string(userId)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uzzap.Profile{}, uzzap.ErrProfileNotFound
		}
		return uzzap.Profile{}, fmt.Errorf("select profile: %w", err)
	}
	return profile.ToDomain(), nil
}

func (s *ProfileStore) Create(ctx context.Context, p uzzap.Profile) (uzzap.Profile, error) {
	profile := &Profile{
		Id:            string(p.Id),
		Username:      p.Username,
		DisplayName:   optionalColumn(p.DisplayName),
		AvatarUrl:     optionalColumn(p.AvatarUrl),
		StatusMessage: optionalColumn(p.StatusMessage),
	}
	_, err := s.DB.NewInsert().
		Model(profile).
		Returning(`*`).
		Exec(ctx)
	if err != nil {
		if isIntegrityViolation(err) {
			return uzzap.Profile{}, uzzap.ErrProfileConflict
		}
		return uzzap.Profile{}, fmt.Errorf("insert profile: %w", err)
	}
	return profile.ToDomain(), nil
}

func (s *ProfileStore) Update(ctx context.Context, userId uzzap.UserId, patch uzzap.ProfilePatch) (uzzap.Profile, error) {
	profile := new(Profile)
	query := s.DB.NewUpdate().
		Model(profile).
		Where(`id=?`, string(userId)).
		Set(`last_seen=current_timestamp`).
		Returning(`*`)
	if patch.DisplayName.Set {
		query = query.Set(`display_name=?`, patchColumn(patch.DisplayName))
	}
	if patch.StatusMessage.Set {
		query = query.Set(`status_message=?`, patchColumn(patch.StatusMessage))
	}
	if patch.AvatarUrl.Set {
		query = query.Set(`avatar_url=?`, patchColumn(patch.AvatarUrl))
	}

	res, err := query.Exec(ctx)
	if err != nil {
		return uzzap.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return uzzap.Profile{}, fmt.Errorf("update rows affected: %w", err)
	}
	if rows == 0 {
		return uzzap.Profile{}, uzzap.ErrProfileNotFound
	}
	return profile.ToDomain(), nil
}

func (s *ProfileStore) TouchLastSeen(ctx context.Context, userId uzzap.UserId) error {
	res, err := s.DB.NewUpdate().
		Model((*Profile)(nil)).
		Where(`id=?`, string(userId)).
		Set(`last_seen=current_timestamp`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("touch last seen: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch rows affected: %w", err)
	}
	if rows == 0 {
		return uzzap.ErrProfileNotFound
	}
	return nil
}

func optionalColumn(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func patchColumn(value uzzap.NullString) sql.NullString {
	return sql.NullString{String: value.Value, Valid: value.Valid}
}

func isIntegrityViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.IntegrityViolation()
}
