package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bapconnect/connect-api/internal/application"
	"github.com/bapconnect/connect-api/internal/domain/entity"
	repo "github.com/bapconnect/connect-api/internal/domain/repository"
	"github.com/bapconnect/connect-api/pkg/helpers"
)

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) Begin(ctx context.Context) (repo.Tx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(repo.Tx)
	return tx, args.Error(1)
}

func (m *mockUserRepo) Create(ctx context.Context, tx repo.Tx, u *entity.User) error {
	return m.Called(ctx, tx, u).Error(0)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*entity.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*entity.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*entity.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, tx repo.Tx, id string, fields map[string]any) (bool, error) {
	args := m.Called(ctx, tx, id, fields)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) FindUsers(ctx context.Context, f repo.Filter, cursor string, perPage int) (*repo.Page, error) {
	args := m.Called(ctx, f, cursor, perPage)
	p, _ := args.Get(0).(*repo.Page)
	return p, args.Error(1)
}

func testProvider(r repo.UserRepository) *Provider {
	// Attempt never touches Redis, so nil is fine here.
	return NewProvider(r, helpers.NewJWTManager("test-secret", time.Hour), nil, nil)
}

func TestAttemptUnknownEmail(t *testing.T) {
	r := new(mockUserRepo)
	r.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, repo.ErrNotFound)

	_, err := testProvider(r).Attempt(context.Background(), "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, application.ErrInvalidCredentials)
}

func TestAttemptPasswordlessAccount(t *testing.T) {
	r := new(mockUserRepo)
	r.On("FindByEmail", mock.Anything, "new@example.com").
		Return(&entity.User{ID: "u1", Email: "new@example.com"}, nil)

	_, err := testProvider(r).Attempt(context.Background(), "new@example.com", "anything")
	assert.ErrorIs(t, err, application.ErrInvalidCredentials)
}

func TestAttemptWrongPassword(t *testing.T) {
	hash, err := helpers.HashPassword("right-password")
	require.NoError(t, err)

	r := new(mockUserRepo)
	r.On("FindByEmail", mock.Anything, "user@example.com").
		Return(&entity.User{ID: "u1", Email: "user@example.com", Password: &hash}, nil)

	_, err = testProvider(r).Attempt(context.Background(), "user@example.com", "wrong-password")
	assert.ErrorIs(t, err, application.ErrInvalidCredentials)
}

func TestAttemptRepositoryFaultIsNotACredentialError(t *testing.T) {
	r := new(mockUserRepo)
	r.On("FindByEmail", mock.Anything, "user@example.com").
		Return(nil, assert.AnError)

	_, err := testProvider(r).Attempt(context.Background(), "user@example.com", "whatever")
	require.Error(t, err)
	assert.NotErrorIs(t, err, application.ErrInvalidCredentials)
}

func TestAttemptSuccessIssuesParseableToken(t *testing.T) {
	hash, err := helpers.HashPassword("right-password")
	require.NoError(t, err)

	r := new(mockUserRepo)
	r.On("FindByEmail", mock.Anything, "user@example.com").
		Return(&entity.User{ID: "u1", Email: "user@example.com", Password: &hash}, nil)

	p := testProvider(r)
	token, err := p.Attempt(context.Background(), "user@example.com", "right-password")
	require.NoError(t, err)

	claims, err := p.JWT.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.NotEmpty(t, claims.ID)
}
