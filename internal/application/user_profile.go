package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bapconnect/connect-api/internal/domain/entity"
	repo "github.com/bapconnect/connect-api/internal/domain/repository"
)

// UpdateProfileInput is a sparse change-set: absent fields stay untouched,
// explicit nulls clear the column. Birthday fields travel together; the
// handler enforces the all-or-nothing rule before the use case runs.
type UpdateProfileInput struct {
	Username      Optional[string]
	FirstName     Optional[string]
	LastName      Optional[string]
	Gender        Optional[string]
	BirthdayDay   Optional[int]
	BirthdayMonth Optional[int]
	BirthdayYear  Optional[int]
	Province      Optional[string]
	District      Optional[string]
	Ward          Optional[string]
	Address       Optional[string]
	Phone         Optional[string]
}

func (in UpdateProfileInput) changes() map[string]any {
	fields := map[string]any{}
	put(fields, "username", in.Username)
	put(fields, "first_name", in.FirstName)
	put(fields, "last_name", in.LastName)
	put(fields, "gender", in.Gender)
	put(fields, "birthday_day", in.BirthdayDay)
	put(fields, "birthday_month", in.BirthdayMonth)
	put(fields, "birthday_year", in.BirthdayYear)
	put(fields, "province", in.Province)
	put(fields, "district", in.District)
	put(fields, "ward", in.Ward)
	put(fields, "address", in.Address)
	put(fields, "phone", in.Phone)
	return fields
}

// UpdateProfile applies a partial profile update. An empty change-set
// returns the current record without opening a transaction.
func (s *Service) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (*entity.User, error) {
	u, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUpdateFailed, err)
	}

	fields := in.changes()
	if len(fields) == 0 {
		return u, nil
	}
	fields["updated_by"] = u.ID
	fields["updater_name"] = u.Username

	tx, err := s.Repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpdateFailed, err)
	}
	ok, err := s.Repo.Update(ctx, tx, u.ID, fields)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("%w: %v", ErrUpdateFailed, err)
	}
	if !ok {
		_ = tx.Rollback(ctx)
		return nil, ErrUpdateFailed
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpdateFailed, err)
	}

	updated, err := s.Repo.FindByID(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpdateFailed, err)
	}
	s.indexUser(ctx, updated)
	return updated, nil
}

// avatarObjectPath keys the avatar object by user id, so a new upload
// overwrites the previous object instead of accumulating files.
func avatarObjectPath(userID string) string {
	return "avatars/" + userID
}

// UpdateAvatar is the one workflow spanning two external systems. The upload
// happens first, outside any transaction; the database commit either makes
// the new path durable or the uploaded object is deleted again. The servable
// URL is resolved only after the commit succeeded.
func (s *Service) UpdateAvatar(ctx context.Context, userID string, r io.Reader, contentType string) (string, error) {
	u, err := s.Repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrAvatarUpdate, err)
	}

	path, err := s.Storage.Put(ctx, avatarObjectPath(u.ID), r, contentType)
	if err != nil {
		// Nothing to compensate: no transaction was opened.
		return "", fmt.Errorf("%w: %v", ErrAvatarUpload, err)
	}

	if err := s.commitAvatar(ctx, u, path); err != nil {
		s.compensateUpload(ctx, path)
		return "", err
	}

	u.Avatar = &path
	s.indexUser(ctx, u)
	return s.Storage.URL(path), nil
}

// AvatarURL resolves the stored avatar object path to a servable URL.
// Empty when the user never uploaded one.
func (s *Service) AvatarURL(u *entity.User) string {
	if u.Avatar == nil || *u.Avatar == "" {
		return ""
	}
	return s.Storage.URL(*u.Avatar)
}

// commitAvatar records the new object path in one transaction. Any failure,
// including the no-rows business outcome, leaves the database untouched.
func (s *Service) commitAvatar(ctx context.Context, u *entity.User, path string) error {
	tx, err := s.Repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAvatarUpdate, err)
	}
	ok, err := s.Repo.Update(ctx, tx, u.ID, map[string]any{
		"avatar":       path,
		"updated_by":   u.ID,
		"updater_name": u.Username,
	})
	if err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("%w: %v", ErrAvatarUpdate, err)
	}
	if !ok {
		_ = tx.Rollback(ctx)
		return ErrAvatarUpdate
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrAvatarUpdate, err)
	}
	return nil
}

// compensateUpload removes the just-uploaded object after a failed database
// step. Best effort: the invariant is that the database never points at a
// missing object, not that no orphaned object exists.
func (s *Service) compensateUpload(ctx context.Context, path string) {
	if err := s.Storage.Delete(ctx, path); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("path", path).Warn("orphaned avatar object left in storage")
	}
}

// DeleteUser soft-deletes the account and, only after the commit, retires
// the presented bearer token. Safe to repeat: the second call rewrites the
// same terminal state.
func (s *Service) DeleteUser(ctx context.Context, id, bearerToken string) error {
	u, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}

	tx, err := s.Repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	ok, err := s.Repo.Update(ctx, tx, u.ID, map[string]any{
		"status":       false,
		"deleted_at":   time.Now(),
		"updated_by":   u.ID,
		"updater_name": u.Username,
	})
	if err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	if !ok {
		_ = tx.Rollback(ctx)
		return ErrDeleteFailed
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}

	// Token invalidation is not transactional with the database; it must not
	// run when the commit failed, and its own failure does not undo the
	// delete.
	if bearerToken != "" && s.Auth != nil {
		if err := s.Auth.Invalidate(ctx, bearerToken); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("invalidate token after delete failed")
		}
	}
	return nil
}
