package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTGenerateAndParse(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	token, exp, err := m.Generate("u1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.NotEmpty(t, claims.ID, "every token needs a jti")
}

func TestJWTEachTokenGetsAFreshJTI(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	t1, _, err := m.Generate("u1")
	require.NoError(t, err)
	t2, _, err := m.Generate("u1")
	require.NoError(t, err)

	c1, err := m.Parse(t1)
	require.NoError(t, err)
	c2, err := m.Parse(t2)
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, c2.ID)
}

func TestJWTParseRejectsWrongSecret(t *testing.T) {
	a := NewJWTManager("secret-a", time.Hour)
	b := NewJWTManager("secret-b", time.Hour)

	token, _, err := a.Generate("u1")
	require.NoError(t, err)

	_, err = b.Parse(token)
	assert.Error(t, err)
}

func TestJWTParseRejectsExpired(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute)

	token, _, err := m.Generate("u1")
	require.NoError(t, err)

	_, err = m.Parse(token)
	assert.Error(t, err)
}
