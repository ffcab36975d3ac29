package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bapconnect/connect-api/internal/domain/entity"
	"github.com/bapconnect/connect-api/internal/domain/repository"
)

const userColumns = `id, username, email, password, first_name, last_name, gender,
	birthday_day, birthday_month, birthday_year, province, district, ward, address,
	phone, avatar, status, email_verified_at, verify_user_token,
	user_verify_token_expiration, created_by, updated_by, creator_name, updater_name,
	created_at, updated_at, deleted_at`

// updatableColumns is the whitelist for sparse updates; anything else in the
// field map is a programming error, not user input.
var updatableColumns = map[string]struct{}{
	"username": {}, "email": {}, "password": {}, "first_name": {}, "last_name": {},
	"gender": {}, "birthday_day": {}, "birthday_month": {}, "birthday_year": {},
	"province": {}, "district": {}, "ward": {}, "address": {}, "phone": {},
	"avatar": {}, "status": {}, "email_verified_at": {}, "verify_user_token": {},
	"user_verify_token_expiration": {}, "deleted_at": {}, "updated_by": {},
	"updater_name": {},
}

type UserRepository struct {
	pool *pgxpool.Pool
	// baseURL prefixes the paginator URLs FindUsers emits,
	// e.g. https://api.example.com
	baseURL string
}

func NewUserRepository(pool *pgxpool.Pool, baseURL string) *UserRepository {
	return &UserRepository{pool: pool, baseURL: strings.TrimRight(baseURL, "/")}
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

func (r *UserRepository) Begin(ctx context.Context) (repository.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

func (r *UserRepository) Create(ctx context.Context, tx repository.Tx, u *entity.User) error {
	sql := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, now(), now(), NULL)
		RETURNING created_at, updated_at`
	args := []any{
		u.ID, u.Username, u.Email, u.Password, u.FirstName, u.LastName, u.Gender,
		u.BirthdayDay, u.BirthdayMonth, u.BirthdayYear, u.Province, u.District,
		u.Ward, u.Address, u.Phone, u.Avatar, u.Status, u.EmailVerifiedAt,
		u.VerifyUserToken, u.VerifyTokenExpiration, u.CreatedBy, u.UpdatedBy,
		u.CreatorName, u.UpdaterName,
	}

	var row pgx.Row
	if t, ok := tx.(*pgTx); ok && t != nil {
		row = t.tx.QueryRow(ctx, sql, args...)
	} else {
		row = r.pool.QueryRow(ctx, sql, args...)
	}
	return row.Scan(&u.CreatedAt, &u.UpdatedAt)
}

// FindByID deliberately includes soft-deleted rows: DeleteUser needs the
// lookup to keep succeeding so a repeat delete stays a no-op, and callers
// serving public reads hide deleted accounts themselves.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	return r.findBy(ctx, "id = $1", id)
}

// FindByEmail only sees live accounts; a soft-deleted user can neither log
// in nor have their verification mail resent.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findBy(ctx, "email = $1 AND deleted_at IS NULL", email)
}

func (r *UserRepository) findBy(ctx context.Context, cond, value string) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+cond, value)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Update(ctx context.Context, tx repository.Tx, id string, fields map[string]any) (bool, error) {
	if len(fields) == 0 {
		return false, nil
	}

	set := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+1)
	for col, val := range fields {
		if _, ok := updatableColumns[col]; !ok {
			return false, fmt.Errorf("update users: column %q not updatable", col)
		}
		args = append(args, val)
		set = append(set, col+" = $"+strconv.Itoa(len(args)))
	}
	set = append(set, "updated_at = now()")
	args = append(args, id)

	sql := "UPDATE users SET " + strings.Join(set, ", ") + " WHERE id = $" + strconv.Itoa(len(args))

	if t, ok := tx.(*pgTx); ok && t != nil {
		tag, err := t.tx.Exec(ctx, sql, args...)
		if err != nil {
			return false, err
		}
		return tag.RowsAffected() > 0, nil
	}
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.Password, &u.FirstName, &u.LastName,
		&u.Gender, &u.BirthdayDay, &u.BirthdayMonth, &u.BirthdayYear, &u.Province,
		&u.District, &u.Ward, &u.Address, &u.Phone, &u.Avatar, &u.Status,
		&u.EmailVerifiedAt, &u.VerifyUserToken, &u.VerifyTokenExpiration,
		&u.CreatedBy, &u.UpdatedBy, &u.CreatorName, &u.UpdaterName,
		&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt,
	); err != nil {
		return nil, err
	}
	return u, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
