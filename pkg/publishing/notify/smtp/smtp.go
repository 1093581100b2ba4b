package smtp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/obscura-press/obscura/pkg/publishing"
	"github.com/wneessen/go-mail"
)

// Config options for the SMTP notifier
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string // sender address for all moderation mail
}

// Notifier sends moderation decisions over SMTP. It implements
// publishing.Notifier; delivery guarantees are at-least-once from the
// caller's perspective, so the message bodies are safe to resend.
type Notifier struct {
	client *mail.Client
	from   string
}

type message struct {
	subject string
	body    *template.Template
}

var messages = map[publishing.NotificationTemplate]message{
	publishing.TemplateTheoryApproved: {
		subject: "Your theory has been approved",
		body: template.Must(template.New("theory-approved").Parse(
			"Good news!\n\n" +
				"Your theory \"{{.title}}\" has been reviewed and approved. " +
				"It is now visible to other readers.\n\n" +
				"— The Obscura editorial team\n")),
	},
	publishing.TemplateTheoryRejected: {
		subject: "Your theory was not accepted",
		body: template.Must(template.New("theory-rejected").Parse(
			"Thank you for your submission.\n\n" +
				"Your theory \"{{.title}}\" was reviewed but not accepted.\n\n" +
				"Reviewer's note: {{.reason}}\n\n" +
				"You are welcome to revise and submit again.\n\n" +
				"— The Obscura editorial team\n")),
	},
}

// New creates a new SMTP notifier
func New(config Config) (*Notifier, error) {
	if config.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if config.From == "" {
		return nil, errors.New("sender address is required")
	}

	opts := []mail.Option{
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if config.Port != 0 {
		opts = append(opts, mail.WithPort(config.Port))
	}
	if config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	client, err := mail.NewClient(config.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return &Notifier{client: client, from: config.From}, nil
}

// Send renders the template and delivers one message
func (n *Notifier) Send(ctx context.Context, to string, tmpl publishing.NotificationTemplate, fields map[string]string) error {
	msg, ok := messages[tmpl]
	if !ok {
		return fmt.Errorf("unknown notification template %q", tmpl)
	}

	var body strings.Builder
	if err := msg.body.Execute(&body, fields); err != nil {
		return fmt.Errorf("failed to render template %q: %w", tmpl, err)
	}

	m := mail.NewMsg()
	if err := m.From(n.from); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := m.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(msg.subject)
	m.SetBodyString(mail.TypeTextPlain, body.String())

	if err := n.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send %q to %s: %w", tmpl, to, err)
	}
	return nil
}
