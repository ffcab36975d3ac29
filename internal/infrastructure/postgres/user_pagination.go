package postgres

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bapconnect/connect-api/internal/domain/entity"
	"github.com/bapconnect/connect-api/internal/domain/repository"
)

const (
	dirNext = "next"
	dirPrev = "prev"
)

// pageCursor is the keyset position for the fixed listing order
// (status desc, email_verified_at desc, created_at desc, id desc).
// It travels base64-encoded inside the paginator URLs.
type pageCursor struct {
	Status     bool       `json:"s"`
	VerifiedAt *time.Time `json:"v,omitempty"`
	CreatedAt  time.Time  `json:"c"`
	ID         string     `json:"id"`
	Dir        string     `json:"d"`
}

func encodeCursor(c pageCursor) string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeCursor(s string) (pageCursor, error) {
	var c pageCursor
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, err
	}
	if c.Dir != dirNext && c.Dir != dirPrev {
		return c, fmt.Errorf("unknown cursor direction %q", c.Dir)
	}
	return c, nil
}

// cursorOrNil decodes a client-supplied cursor leniently: anything
// undecodable counts as no cursor at all, so a tampered or truncated page
// link restarts the listing instead of failing the request.
func cursorOrNil(s string) *pageCursor {
	if s == "" {
		return nil
	}
	c, err := decodeCursor(s)
	if err != nil {
		return nil
	}
	return &c
}

func cursorFrom(u *entity.User, dir string) pageCursor {
	return pageCursor{
		Status:     u.Status,
		VerifiedAt: u.EmailVerifiedAt,
		CreatedAt:  u.CreatedAt,
		ID:         u.ID,
		Dir:        dir,
	}
}

// FindUsers runs the filtered listing with keyset pagination. NULL
// verified-at sorts last via an epoch coalesce so the keyset tuple stays
// totally ordered.
func (r *UserRepository) FindUsers(ctx context.Context, f repository.Filter, cursor string, perPage int) (*repository.Page, error) {
	cur := cursorOrNil(cursor)
	backward := cur != nil && cur.Dir == dirPrev
	where, args := listingWhere(f, cur, backward)

	sql := "SELECT " + userColumns + " FROM users WHERE " + joinAnd(where)
	if backward {
		sql += " ORDER BY status ASC, COALESCE(email_verified_at, 'epoch'::timestamptz) ASC, created_at ASC, id ASC"
	} else {
		sql += " ORDER BY status DESC, COALESCE(email_verified_at, 'epoch'::timestamptz) DESC, created_at DESC, id DESC"
	}
	sql += " LIMIT " + strconv.Itoa(perPage+1)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.User, 0, perPage)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(items) > perPage
	if hasMore {
		items = items[:perPage]
	}
	if backward {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}

	page := &repository.Page{Items: items}
	if len(items) == 0 {
		return page, nil
	}
	first, last := items[0], items[len(items)-1]

	// Walking backward we came from a later page, so a next page always
	// exists; walking forward it exists only when the extra row showed up.
	if backward || hasMore {
		page.NextPageURL = r.pageURL(cursorFrom(last, dirNext))
	}
	if (backward && hasMore) || (!backward && cur != nil) {
		page.PreviousPageURL = r.pageURL(cursorFrom(first, dirPrev))
	}
	return page, nil
}

// listingWhere builds the WHERE clauses for the listing. Soft-deleted rows
// never appear, whatever the filters say.
func listingWhere(f repository.Filter, cur *pageCursor, backward bool) ([]string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	where = append(where, "deleted_at IS NULL")
	if f.FirstName != "" {
		where = append(where, "first_name LIKE "+arg(likePrefix(f.FirstName)))
	}
	if f.LastName != "" {
		where = append(where, "last_name LIKE "+arg(likePrefix(f.LastName)))
	}
	if f.Username != "" {
		where = append(where, "username LIKE "+arg(likePrefix(f.Username)))
	}
	if f.Email != "" {
		where = append(where, "email LIKE "+arg(likePrefix(f.Email)))
	}
	if f.Gender != "" {
		where = append(where, "gender = "+arg(f.Gender))
	}
	if f.BirthdayFrom != nil {
		where = append(where, "birthday_year >= "+arg(f.BirthdayFrom.Year()))
		where = append(where, "birthday_month >= "+arg(int(f.BirthdayFrom.Month())))
		where = append(where, "birthday_day >= "+arg(f.BirthdayFrom.Day()))
	}
	if f.BirthdayTo != nil {
		where = append(where, "birthday_year <= "+arg(f.BirthdayTo.Year()))
		where = append(where, "birthday_month <= "+arg(int(f.BirthdayTo.Month())))
		where = append(where, "birthday_day <= "+arg(f.BirthdayTo.Day()))
	}

	const keyExpr = "(status::int, COALESCE(email_verified_at, 'epoch'::timestamptz), created_at, id)"
	if cur != nil {
		status := 0
		if cur.Status {
			status = 1
		}
		tuple := "(" + arg(status) + ", COALESCE(" + arg(cur.VerifiedAt) + "::timestamptz, 'epoch'::timestamptz), " +
			arg(cur.CreatedAt) + ", " + arg(cur.ID) + ")"
		if backward {
			where = append(where, keyExpr+" > "+tuple)
		} else {
			where = append(where, keyExpr+" < "+tuple)
		}
	}

	return where, args
}

func (r *UserRepository) pageURL(c pageCursor) string {
	return r.baseURL + "/api/users?cursor=" + url.QueryEscape(encodeCursor(c))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePrefix(s string) string {
	return likeEscaper.Replace(s) + "%"
}

func joinAnd(parts []string) string {
	return strings.Join(parts, " AND ")
}
