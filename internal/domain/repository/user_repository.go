package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bapconnect/connect-api/internal/domain/entity"
)

// ErrNotFound is returned by lookups that miss. Write paths never return it;
// they report "no effect" through their boolean result instead.
var ErrNotFound = errors.New("user not found")

// Tx is a storage transaction handle. Use cases own the commit/rollback
// decision; the repository only hands the handle out and accepts it back on
// write operations.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Filter narrows FindUsers. Name/username/email are prefix matches, gender
// is an exact match, the birthday bounds compare against the split
// day/month/year columns.
type Filter struct {
	FirstName    string
	LastName     string
	Username     string
	Email        string
	Gender       string
	BirthdayFrom *time.Time
	BirthdayTo   *time.Time
}

// Page is one cursor-paginated slice of users. The page URLs are absolute
// paginator URLs; callers reduce them to opaque tokens before they leave the
// service boundary.
type Page struct {
	Items           []*entity.User
	NextPageURL     string
	PreviousPageURL string
}

// UserRepository defines the storage operations the user lifecycle needs.
// Uniqueness of username/email/phone is enforced here (by constraint), not
// by callers.
type UserRepository interface {
	Begin(ctx context.Context) (Tx, error)
	Create(ctx context.Context, tx Tx, u *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	// Update applies a sparse column update and reports whether a row changed.
	// A nil field value writes SQL NULL.
	Update(ctx context.Context, tx Tx, id string, fields map[string]any) (bool, error)
	FindUsers(ctx context.Context, f Filter, cursor string, perPage int) (*Page, error)
}
