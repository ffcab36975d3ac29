// Package auth implements the bearer-token auth provider on top of JWT and
// a Redis denylist for retired tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/bapconnect/connect-api/internal/application"
	repo "github.com/bapconnect/connect-api/internal/domain/repository"
	"github.com/bapconnect/connect-api/pkg/helpers"
)

// ErrTokenRevoked marks a structurally valid token that was invalidated.
var ErrTokenRevoked = errors.New("token revoked")

func denylistKey(jti string) string {
	return "auth:denylist:" + jti
}

// Provider checks credentials against the user store and issues stateless
// JWTs. Invalidation is the one stateful part: a retired jti sits in Redis
// until the token would have expired anyway.
type Provider struct {
	Repo   repo.UserRepository
	JWT    *helpers.JWTManager
	Redis  *redis.Client
	Logger *logrus.Logger
}

func NewProvider(r repo.UserRepository, jwt *helpers.JWTManager, rdb *redis.Client, logger *logrus.Logger) *Provider {
	return &Provider{Repo: r, JWT: jwt, Redis: rdb, Logger: logger}
}

// Attempt validates the credentials and issues a token. Unknown email, a
// wrong password and a password-less (unverified) account all collapse into
// ErrInvalidCredentials; signing failures surface as provider faults.
func (p *Provider) Attempt(ctx context.Context, email, password string) (string, error) {
	u, err := p.Repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", application.ErrInvalidCredentials
		}
		return "", fmt.Errorf("find user: %w", err)
	}
	if u.Password == nil || !helpers.CompareHashAndPassword(*u.Password, password) {
		return "", application.ErrInvalidCredentials
	}

	token, _, err := p.JWT.Generate(u.ID)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Invalidate retires the token by denylisting its jti for the remainder of
// its lifetime. An already-expired token is a no-op.
func (p *Provider) Invalidate(ctx context.Context, token string) error {
	claims, err := p.JWT.Parse(token)
	if err != nil {
		return err
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return p.Redis.Set(ctx, denylistKey(claims.ID), "1", ttl).Err()
}

// Refresh exchanges a still-valid token for a fresh one and retires the old
// jti so the pair cannot both stay usable.
func (p *Provider) Refresh(ctx context.Context, token string) (string, error) {
	claims, err := p.JWT.Parse(token)
	if err != nil {
		return "", err
	}
	revoked, err := p.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", ErrTokenRevoked
	}

	fresh, _, err := p.JWT.Generate(claims.UserID)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	if err := p.Invalidate(ctx, token); err != nil && p.Logger != nil {
		p.Logger.WithError(err).Warn("retire refreshed token failed")
	}
	return fresh, nil
}

// IsRevoked reports whether a jti sits on the denylist. Used by the auth
// middleware on every protected request.
func (p *Provider) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := p.Redis.Exists(ctx, denylistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ application.AuthProvider = (*Provider)(nil)
