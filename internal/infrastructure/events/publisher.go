// Package events dispatches domain events onto the message queue.
package events

import (
	"context"
	"net/url"
	"strings"

	"github.com/bapconnect/connect-api/internal/application"
	"github.com/bapconnect/connect-api/internal/domain/entity"
	"github.com/bapconnect/connect-api/pkg/helpers"
	"github.com/bapconnect/connect-api/pkg/mailer"
)

// RabbitPublisher turns domain events into email jobs on the RabbitMQ
// queue. Callers fire it only after their transaction committed; the email
// worker owns delivery and retries from there.
type RabbitPublisher struct {
	Pub *helpers.RabbitPublisher
	// VerifyURL is the front-end verification page; the token is appended
	// as its token query parameter.
	VerifyURL string
}

func NewRabbitPublisher(pub *helpers.RabbitPublisher, verifyURL string) *RabbitPublisher {
	return &RabbitPublisher{Pub: pub, VerifyURL: verifyURL}
}

// UserRegistered enqueues the verification email for a freshly registered
// (or resent) account.
func (p *RabbitPublisher) UserRegistered(ctx context.Context, u *entity.User) error {
	token := ""
	if u.VerifyUserToken != nil {
		token = *u.VerifyUserToken
	}
	data := map[string]any{
		"Name":      u.FullName(),
		"Username":  u.Username,
		"VerifyURL": p.verifyLink(token),
	}
	if u.VerifyTokenExpiration != nil {
		data["ExpiresAt"] = u.VerifyTokenExpiration.UTC()
	}
	job := mailer.EmailJob{
		To:       u.Email,
		Template: mailer.TemplateVerifyEmail,
		Data:     data,
	}
	return p.Pub.PublishJSON(ctx, job)
}

func (p *RabbitPublisher) verifyLink(token string) string {
	base := strings.TrimRight(p.VerifyURL, "/")
	return base + "?token=" + url.QueryEscape(token)
}

var _ application.EventPublisher = (*RabbitPublisher)(nil)
