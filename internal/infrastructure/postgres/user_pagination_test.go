package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bapconnect/connect-api/internal/domain/entity"
	"github.com/bapconnect/connect-api/internal/domain/repository"
)

func TestCursorRoundTrip(t *testing.T) {
	verified := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	in := pageCursor{
		Status:     true,
		VerifiedAt: &verified,
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		ID:         "0195e9a2-0000-7000-8000-000000000001",
		Dir:        dirNext,
	}

	out, err := decodeCursor(encodeCursor(in))
	require.NoError(t, err)
	assert.Equal(t, in.Status, out.Status)
	assert.True(t, in.VerifiedAt.Equal(*out.VerifiedAt))
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Dir, out.Dir)
}

func TestCursorNilVerifiedAtSurvives(t *testing.T) {
	in := pageCursor{
		Status:    false,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		ID:        "u1",
		Dir:       dirPrev,
	}
	out, err := decodeCursor(encodeCursor(in))
	require.NoError(t, err)
	assert.Nil(t, out.VerifiedAt)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	cases := []string{
		"not base64 !!!",
		"bm90IGpzb24",       // "not json"
		"eyJkIjoiZG93biJ9",  // {"d":"down"} - unknown direction
		"eyJpZCI6ICJ1MSJ9",  // {"id": "u1"} - missing direction
	}
	for _, c := range cases {
		_, err := decodeCursor(c)
		assert.Error(t, err, "cursor %q", c)
	}
}

func TestMangledCursorFallsBackToFirstPage(t *testing.T) {
	// A tampered or truncated page link must restart the listing, never
	// surface an error to the caller.
	assert.Nil(t, cursorOrNil("not base64 !!!"))
	assert.Nil(t, cursorOrNil("eyJkIjoiZG93biJ9")) // {"d":"down"} - unknown direction
	assert.Nil(t, cursorOrNil(""))

	valid := encodeCursor(pageCursor{ID: "u1", CreatedAt: time.Now(), Dir: dirNext})
	cur := cursorOrNil(valid)
	require.NotNil(t, cur)
	assert.Equal(t, "u1", cur.ID)
	assert.Equal(t, dirNext, cur.Dir)
}

func TestListingAlwaysExcludesSoftDeleted(t *testing.T) {
	where, args := listingWhere(repository.Filter{}, nil, false)
	require.NotEmpty(t, where)
	assert.Equal(t, "deleted_at IS NULL", where[0])
	assert.Empty(t, args)

	// The predicate survives filters and the keyset tuple.
	cur := &pageCursor{ID: "u1", CreatedAt: time.Now(), Dir: dirNext}
	where, args = listingWhere(repository.Filter{Username: "jo", Gender: entity.GenderMale}, cur, false)
	assert.Equal(t, "deleted_at IS NULL", where[0])
	assert.Contains(t, joinAnd(where), "username LIKE")
	assert.Len(t, args, 6)
}

func TestCursorFromUsesListingKeyFields(t *testing.T) {
	verified := time.Now()
	u := &entity.User{
		ID:              "u1",
		Status:          true,
		EmailVerifiedAt: &verified,
		CreatedAt:       time.Now().Add(-time.Hour),
	}
	c := cursorFrom(u, dirNext)
	assert.Equal(t, u.ID, c.ID)
	assert.Equal(t, u.Status, c.Status)
	assert.Equal(t, u.EmailVerifiedAt, c.VerifiedAt)
	assert.Equal(t, dirNext, c.Dir)
}

func TestLikePrefixEscapesWildcards(t *testing.T) {
	assert.Equal(t, `john%`, likePrefix("john"))
	assert.Equal(t, `50\%off%`, likePrefix("50%off"))
	assert.Equal(t, `snake\_case%`, likePrefix("snake_case"))
	assert.Equal(t, `back\\slash%`, likePrefix(`back\slash`))
}

func TestPageURLCarriesEscapedCursor(t *testing.T) {
	r := NewUserRepository(nil, "https://api.example.com")
	u := r.pageURL(pageCursor{ID: "u1", CreatedAt: time.Now(), Dir: dirNext})
	assert.Contains(t, u, "https://api.example.com/api/users?cursor=")
}
