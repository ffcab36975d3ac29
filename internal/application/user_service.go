package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/sirupsen/logrus"

	"github.com/bapconnect/connect-api/internal/domain/entity"
	repo "github.com/bapconnect/connect-api/internal/domain/repository"
	"github.com/bapconnect/connect-api/pkg/helpers"
)

// TokenCipher produces and consumes the stateless verification token.
type TokenCipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(token string) (string, error)
}

// AvatarStorage is the object-store collaborator for avatar binaries.
// Put returns the stored object path; URL resolves a path to a servable URL.
type AvatarStorage interface {
	Put(ctx context.Context, path string, r io.Reader, contentType string) (string, error)
	URL(path string) string
	Delete(ctx context.Context, path string) error
}

// AuthProvider issues and retires bearer tokens. Attempt reports a
// credential mismatch as ErrInvalidCredentials; any other error is a
// provider-level fault.
type AuthProvider interface {
	Attempt(ctx context.Context, email, password string) (string, error)
	Invalidate(ctx context.Context, token string) error
	Refresh(ctx context.Context, token string) (string, error)
}

// EventPublisher dispatches domain events. Implementations run strictly
// after the surrounding transaction committed and must not influence the
// use-case outcome.
type EventPublisher interface {
	UserRegistered(ctx context.Context, u *entity.User) error
}

// DefaultVerifyTokenTTL bounds how long a registration can complete
// verification.
const DefaultVerifyTokenTTL = 24 * time.Hour

// DefaultPerPage caps user listing pages.
const DefaultPerPage = 100

// Service implements the user lifecycle use cases. Every write runs inside
// one repository transaction; the only state it holds are its collaborators.
type Service struct {
	Repo           repo.UserRepository
	Cipher         TokenCipher
	Storage        AvatarStorage
	Auth           AuthProvider
	Events         EventPublisher
	Logger         *logrus.Logger
	ES             *elasticsearch.Client
	ESUsersIndex   string
	VerifyTokenTTL time.Duration
}

func NewService(r repo.UserRepository, cipher TokenCipher, storage AvatarStorage, auth AuthProvider, events EventPublisher, logger *logrus.Logger, es *elasticsearch.Client, esUsersIndex string) *Service {
	return &Service{
		Repo:           r,
		Cipher:         cipher,
		Storage:        storage,
		Auth:           auth,
		Events:         events,
		Logger:         logger,
		ES:             es,
		ESUsersIndex:   esUsersIndex,
		VerifyTokenTTL: DefaultVerifyTokenTTL,
	}
}

// RegisterInput carries a validated registration payload. The id is
// generated by the caller before the use case runs.
type RegisterInput struct {
	ID            string
	Username      string
	Email         string
	FirstName     string
	LastName      string
	Gender        string
	BirthdayDay   *int
	BirthdayMonth *int
	BirthdayYear  *int
	Province      string
	District      string
	Ward          string
	Address       string
	Phone         *string
}

// Register creates an unverified account. The verification token is computed
// first so a cipher misconfiguration fails before any transaction is opened.
// The UserRegistered event fires only after commit.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	token, err := s.Cipher.Encrypt(in.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	exp := time.Now().Add(s.verifyTTL())

	u := &entity.User{
		ID:                    in.ID,
		Username:              in.Username,
		Email:                 in.Email,
		FirstName:             in.FirstName,
		LastName:              in.LastName,
		Gender:                in.Gender,
		BirthdayDay:           in.BirthdayDay,
		BirthdayMonth:         in.BirthdayMonth,
		BirthdayYear:          in.BirthdayYear,
		Province:              in.Province,
		District:              in.District,
		Ward:                  in.Ward,
		Address:               in.Address,
		Phone:                 in.Phone,
		Status:                false,
		VerifyUserToken:       &token,
		VerifyTokenExpiration: &exp,
		CreatedBy:             entity.SystemUserID,
		UpdatedBy:             entity.SystemUserID,
		CreatorName:           entity.SystemUserName,
		UpdaterName:           entity.SystemUserName,
	}

	tx, err := s.Repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}
	if err := s.Repo.Create(ctx, tx, u); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}

	s.publishRegistered(ctx, u)
	return u, nil
}

func (s *Service) verifyTTL() time.Duration {
	if s.VerifyTokenTTL > 0 {
		return s.VerifyTokenTTL
	}
	return DefaultVerifyTokenTTL
}

// publishRegistered dispatches the post-commit event. Delivery is
// at-least-once from this side; a publish failure is logged and never fails
// the registration that already committed.
func (s *Service) publishRegistered(ctx context.Context, u *entity.User) {
	if s.Events == nil {
		return
	}
	if err := s.Events.UserRegistered(ctx, u); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("publish user registered event failed")
	}
}

// Verify completes a registration: the token decodes to the user id, the
// stored expiration bounds its validity, and one transaction sets the
// password, marks the email verified, activates the account, and clears the
// stored token pair.
func (s *Service) Verify(ctx context.Context, token, password string) error {
	userID, err := s.Cipher.Decrypt(token)
	if err != nil {
		return ErrTokenInvalid
	}

	u, err := s.Repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	if u.HasVerifiedEmail() {
		return ErrAlreadyVerified
	}
	// The ciphertext itself never expires; the stored expiration is what
	// bounds the verification window.
	if u.VerifyTokenExpiration == nil || u.VerifyTokenExpiration.Before(time.Now()) {
		return ErrTokenExpired
	}

	hash, err := helpers.HashPassword(password)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	tx, err := s.Repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	ok, err := s.Repo.Update(ctx, tx, u.ID, map[string]any{
		"password":                     hash,
		"email_verified_at":            time.Now(),
		"verify_user_token":            nil,
		"user_verify_token_expiration": nil,
		"status":                       true,
	})
	if err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	if !ok {
		// No exception, no row either. The business outcome is what counts.
		_ = tx.Rollback(ctx)
		return ErrVerificationFailed
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	return nil
}

// ResendVerification rotates the verification token for a still-unverified
// account and re-dispatches the registration event so the verification email
// goes out again.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	u, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrUpdateFailed, err)
	}
	if u.HasVerifiedEmail() {
		return ErrAlreadyVerified
	}

	token, err := s.Cipher.Encrypt(u.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	exp := time.Now().Add(s.verifyTTL())

	tx, err := s.Repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpdateFailed, err)
	}
	ok, err := s.Repo.Update(ctx, tx, u.ID, map[string]any{
		"verify_user_token":            token,
		"user_verify_token_expiration": exp,
	})
	if err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("%w: %v", ErrUpdateFailed, err)
	}
	if !ok {
		_ = tx.Rollback(ctx)
		return ErrUpdateFailed
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUpdateFailed, err)
	}

	u.VerifyUserToken = &token
	u.VerifyTokenExpiration = &exp
	s.publishRegistered(ctx, u)
	return nil
}

// Login delegates the credential check to the auth provider, then applies
// the account-usability gate on top: a disabled or soft-deleted account must
// not authenticate even with a correct password. Both gates surface the same
// credential error so callers cannot tell which one fired.
func (s *Service) Login(ctx context.Context, email, password string) (*entity.User, string, error) {
	token, err := s.Auth.Attempt(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	u, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if !u.Status {
		return nil, "", ErrInvalidCredentials
	}
	return u, token, nil
}

// Logout invalidates the presented bearer token at the auth provider.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return ErrTokenNotProvided
	}
	if err := s.Auth.Invalidate(ctx, token); err != nil {
		return fmt.Errorf("%w: %v", ErrLogoutFailed, err)
	}
	return nil
}

// RefreshToken exchanges the presented bearer token for a fresh one.
func (s *Service) RefreshToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrTokenNotProvided
	}
	fresh, err := s.Auth.Refresh(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	return fresh, nil
}
