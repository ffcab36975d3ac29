package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bapconnect/connect-api/internal/domain/entity"
	repo "github.com/bapconnect/connect-api/internal/domain/repository"
)

// --- UpdateProfile ---

func TestUpdateProfileEmptyChangeSetIsANoOp(t *testing.T) {
	svc, d := newTestService()

	u := verifiedUser("u1")
	d.repo.On("FindByID", mock.Anything, "u1").Return(u, nil)

	got, err := svc.UpdateProfile(context.Background(), "u1", UpdateProfileInput{})
	require.NoError(t, err)
	assert.Equal(t, u, got)
	d.repo.AssertNotCalled(t, "Begin", mock.Anything)
	d.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateProfileAppliesSparseChanges(t *testing.T) {
	svc, d := newTestService()

	u := verifiedUser("u1")
	updated := verifiedUser("u1")
	updated.Province = "Hanoi"

	d.repo.On("FindByID", mock.Anything, "u1").Return(u, nil).Once()
	tx := committedTx()
	d.repo.On("Begin", mock.Anything).Return(tx, nil)
	d.repo.On("Update", mock.Anything, tx, "u1", mock.MatchedBy(func(fields map[string]any) bool {
		// phone: explicit null clears; province: value; absent fields stay out
		phone, phonePresent := fields["phone"]
		_, usernamePresent := fields["username"]
		return fields["province"] == "Hanoi" &&
			phonePresent && phone == nil &&
			!usernamePresent &&
			fields["updated_by"] == "u1" &&
			fields["updater_name"] == u.Username
	})).Return(true, nil)
	d.repo.On("FindByID", mock.Anything, "u1").Return(updated, nil).Once()

	got, err := svc.UpdateProfile(context.Background(), "u1", UpdateProfileInput{
		Province: Some("Hanoi"),
		Phone:    Null[string](),
	})
	require.NoError(t, err)
	assert.Equal(t, "Hanoi", got.Province)
	tx.AssertExpectations(t)
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	svc, d := newTestService()

	d.repo.On("FindByID", mock.Anything, "ghost").Return(nil, repo.ErrNotFound)

	_, err := svc.UpdateProfile(context.Background(), "ghost", UpdateProfileInput{Province: Some("Hanoi")})
	require.ErrorIs(t, err, ErrUserNotFound)
}

// --- UpdateAvatar ---

func TestUpdateAvatarSuccess(t *testing.T) {
	svc, d := newTestService()

	u := verifiedUser("u1")
	body := strings.NewReader("fakeimagebytes")

	d.repo.On("FindByID", mock.Anything, "u1").Return(u, nil)
	d.storage.On("Put", mock.Anything, "avatars/u1", body, "image/png").Return("avatars/u1", nil)
	tx := committedTx()
	d.repo.On("Begin", mock.Anything).Return(tx, nil)
	d.repo.On("Update", mock.Anything, tx, "u1", mock.MatchedBy(func(fields map[string]any) bool {
		return fields["avatar"] == "avatars/u1"
	})).Return(true, nil)
	d.storage.On("URL", "avatars/u1").Return("https://storage.example.com/avatars/u1")

	url, err := svc.UpdateAvatar(context.Background(), "u1", body, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://storage.example.com/avatars/u1", url)
	d.storage.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestUpdateAvatarUploadFailureNeedsNoCompensation(t *testing.T) {
	svc, d := newTestService()

	u := verifiedUser("u1")
	body := strings.NewReader("fakeimagebytes")

	d.repo.On("FindByID", mock.Anything, "u1").Return(u, nil)
	d.storage.On("Put", mock.Anything, "avatars/u1", body, "image/png").Return("", errors.New("bucket unreachable"))

	_, err := svc.UpdateAvatar(context.Background(), "u1", body, "image/png")
	require.ErrorIs(t, err, ErrAvatarUpload)
	d.repo.AssertNotCalled(t, "Begin", mock.Anything)
	d.storage.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestUpdateAvatarCommitFailureDeletesUploadedObject(t *testing.T) {
	svc, d := newTestService()

	u := verifiedUser("u1")
	body := strings.NewReader("fakeimagebytes")

	d.repo.On("FindByID", mock.Anything, "u1").Return(u, nil)
	d.storage.On("Put", mock.Anything, "avatars/u1", body, "image/png").Return("avatars/u1", nil)
	tx := rolledBackTx()
	d.repo.On("Begin", mock.Anything).Return(tx, nil)
	d.repo.On("Update", mock.Anything, tx, "u1", mock.Anything).Return(false, errors.New("connection reset"))
	d.storage.On("Delete", mock.Anything, "avatars/u1").Return(nil).Once()

	_, err := svc.UpdateAvatar(context.Background(), "u1", body, "image/png")
	require.ErrorIs(t, err, ErrAvatarUpdate)
	d.storage.AssertNumberOfCalls(t, "Delete", 1)
	tx.AssertExpectations(t)
}

func TestUpdateAvatarCompensationFailureIsTolerated(t *testing.T) {
	svc, d := newTestService()

	u := verifiedUser("u1")
	body := strings.NewReader("fakeimagebytes")

	d.repo.On("FindByID", mock.Anything, "u1").Return(u, nil)
	d.storage.On("Put", mock.Anything, "avatars/u1", body, "image/png").Return("avatars/u1", nil)
	tx := rolledBackTx()
	d.repo.On("Begin", mock.Anything).Return(tx, nil)
	d.repo.On("Update", mock.Anything, tx, "u1", mock.Anything).Return(false, nil)
	// The orphaned object stays; the caller still gets the database error.
	d.storage.On("Delete", mock.Anything, "avatars/u1").Return(errors.New("object locked"))

	_, err := svc.UpdateAvatar(context.Background(), "u1", body, "image/png")
	require.ErrorIs(t, err, ErrAvatarUpdate)
}

// --- DeleteUser ---

func TestDeleteUserSoftDeletesAndRetiresToken(t *testing.T) {
	svc, d := newTestService()

	u := verifiedUser("u1")
	d.repo.On("FindByID", mock.Anything, "u1").Return(u, nil)
	tx := committedTx()
	d.repo.On("Begin", mock.Anything).Return(tx, nil)
	d.repo.On("Update", mock.Anything, tx, "u1", mock.MatchedBy(func(fields map[string]any) bool {
		return fields["status"] == false && fields["deleted_at"] != nil
	})).Return(true, nil)
	d.auth.On("Invalidate", mock.Anything, "bearer-token").Return(nil)

	require.NoError(t, svc.DeleteUser(context.Background(), "u1", "bearer-token"))
	d.auth.AssertExpectations(t)
}

func TestDeleteUserTokenInvalidationFailureDoesNotUndoDelete(t *testing.T) {
	svc, d := newTestService()

	u := verifiedUser("u1")
	d.repo.On("FindByID", mock.Anything, "u1").Return(u, nil)
	tx := committedTx()
	d.repo.On("Begin", mock.Anything).Return(tx, nil)
	d.repo.On("Update", mock.Anything, tx, "u1", mock.Anything).Return(true, nil)
	d.auth.On("Invalidate", mock.Anything, "bearer-token").Return(errors.New("redis down"))

	require.NoError(t, svc.DeleteUser(context.Background(), "u1", "bearer-token"))
}

func TestDeleteUserIsRepeatable(t *testing.T) {
	svc, d := newTestService()

	// Already soft-deleted: the lookup still finds the row and the same
	// terminal state is written again.
	u := verifiedUser("u1")
	deleted := *u
	now := deleted.CreatedAt
	deleted.Status = false
	deleted.DeletedAt = &now

	d.repo.On("FindByID", mock.Anything, "u1").Return(&deleted, nil)
	tx := committedTx()
	d.repo.On("Begin", mock.Anything).Return(tx, nil)
	d.repo.On("Update", mock.Anything, tx, "u1", mock.MatchedBy(func(fields map[string]any) bool {
		return fields["status"] == false && fields["deleted_at"] != nil
	})).Return(true, nil)

	require.NoError(t, svc.DeleteUser(context.Background(), "u1", ""))
	d.auth.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
}

// --- FindUsers ---

func TestFindUsersClampsPerPage(t *testing.T) {
	svc, d := newTestService()

	d.repo.On("FindUsers", mock.Anything, mock.Anything, "", DefaultPerPage).
		Return(&repo.Page{Items: []*entity.User{}}, nil).Twice()

	_, err := svc.FindUsers(context.Background(), FindUsersInput{PerPage: 0})
	require.NoError(t, err)
	_, err = svc.FindUsers(context.Background(), FindUsersInput{PerPage: 5000})
	require.NoError(t, err)
	d.repo.AssertExpectations(t)
}

func TestFindUserHidesSoftDeletedAccount(t *testing.T) {
	svc, d := newTestService()

	u := verifiedUser("u1")
	deleted := *u
	now := deleted.CreatedAt
	deleted.Status = false
	deleted.DeletedAt = &now
	d.repo.On("FindByID", mock.Anything, "u1").Return(&deleted, nil)

	_, err := svc.FindUser(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestFindUsersEmptyPage(t *testing.T) {
	svc, d := newTestService()

	d.repo.On("FindUsers", mock.Anything, mock.Anything, "", DefaultPerPage).
		Return(&repo.Page{Items: []*entity.User{}}, nil)

	page, err := svc.FindUsers(context.Background(), FindUsersInput{})
	require.NoError(t, err)
	assert.NotNil(t, page.Users)
	assert.Empty(t, page.Users)
	assert.Nil(t, page.NextPageToken)
	assert.Nil(t, page.PreviousPageToken)
}

func TestFindUsersReducesPageURLsToTokens(t *testing.T) {
	svc, d := newTestService()

	u := verifiedUser("u1")
	d.repo.On("FindUsers", mock.Anything, mock.Anything, "cur", 10).Return(&repo.Page{
		Items:           []*entity.User{u},
		NextPageURL:     "https://api.example.com/api/users?cursor=nexttok",
		PreviousPageURL: "",
	}, nil)

	page, err := svc.FindUsers(context.Background(), FindUsersInput{Cursor: "cur", PerPage: 10})
	require.NoError(t, err)
	require.NotNil(t, page.NextPageToken)
	assert.Equal(t, "nexttok", *page.NextPageToken)
	assert.Nil(t, page.PreviousPageToken)
}

// --- Optional ---

func TestOptionalStates(t *testing.T) {
	var absent Optional[string]
	assert.False(t, absent.Present())
	assert.False(t, absent.IsNull())

	null := Null[string]()
	assert.True(t, null.Present())
	assert.True(t, null.IsNull())
	_, ok := null.Get()
	assert.False(t, ok)

	some := Some("x")
	v, ok := some.Get()
	assert.True(t, ok)
	assert.Equal(t, "x", v)
}
