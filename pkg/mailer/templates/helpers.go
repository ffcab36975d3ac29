package templates

import (
	"time"

	"github.com/bapconnect/connect-api/config"
)

// Option pattern
type Option func(*EmailData)

func WithUsername(u string) Option    { return func(d *EmailData) { d.Username = u } }
func WithVerifyURL(url string) Option { return func(d *EmailData) { d.VerifyURL = url } }

func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format("02 January 2006, 15:04")
	}
}

// NewBaseEmailData fills common fields from config, then applies Options.
func NewBaseEmailData(cfg *config.Config, typ string, name, email, recipient string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		Email:          email,
		RecipientEmail: recipient,
		Type:           typ,

		CompanyName: cfg.CompanyName,
		SupportURL:  cfg.SupportURL,

		VerifyURL: cfg.VerifyEmailURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewVerifyEmailData(cfg *config.Config, name, email, verifyURL string, opts ...Option) map[string]any {
	opts = append([]Option{WithVerifyURL(verifyURL)}, opts...)
	d := NewBaseEmailData(cfg, VerifyEmail, name, email, email, opts...)
	return ToMap(d)
}
