package mailer

// Template names understood by the email worker.
const (
	TemplateVerifyEmail = "verify_email"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// HTML is optional; Text is recommended as fallback.
// You can also use a template by specifying Template and Data.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // e.g. "verify_email"
	Data     map[string]any `json:"data,omitempty"`
}
