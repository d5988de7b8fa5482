package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"text/template"
	"time"

	"github.com/tendant/simple-verify/pkg/auth"
	"github.com/wneessen/go-mail"
)

const verificationSubject = "Verify Your Email Address"

var verificationText = template.Must(template.New("text").Parse(`Verify Your Email Address

Thank you for registering! Enter this code to verify your email address:

    {{.Code}}

This code will expire in {{.ExpiresIn}}.

If you did not create an account, you can ignore this email.
`))

var verificationHTML = htmltemplate.Must(htmltemplate.New("html").Parse(`<html><body>
	<h2>Verify Your Email Address</h2>
	<p>Thank you for registering! Enter this code to verify your email address:</p>
	<p style="font-size:24px;font-weight:bold;letter-spacing:4px;font-family:monospace">{{.Code}}</p>
	<p>This code will expire in {{.ExpiresIn}}.</p>
	<p>If you did not create an account, you can ignore this email.</p>
</body></html>`))

// EmailConfig holds SMTP settings. Auth is used only when both Username and
// Password are set. TLS is mandatory unless NoTLS is set.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	NoTLS    bool
	// TokenTTL is quoted in the message body.
	TokenTTL time.Duration
}

// EmailService delivers verification codes over SMTP.
type EmailService struct {
	config EmailConfig
	client *mail.Client
	logger *slog.Logger
}

// NewEmailService builds the SMTP client. No connection is made until a send.
func NewEmailService(config EmailConfig, logger *slog.Logger) (*EmailService, error) {
	if config.TokenTTL <= 0 {
		config.TokenTTL = auth.DefaultTokenTTL
	}

	opts := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTimeout(30 * time.Second),
	}
	if config.Username != "" && config.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}
	if config.NoTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	} else {
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{ServerName: config.Host, MinVersion: tls.VersionTLS12}),
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	}

	client, err := mail.NewClient(config.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return &EmailService{config: config, client: client, logger: logger}, nil
}

// SendVerificationCode mails code to the recipient in XXXX-XXXX form.
func (s *EmailService) SendVerificationCode(ctx context.Context, to, code string) error {
	msg, err := s.buildVerificationMessage(to, code)
	if err != nil {
		return err
	}

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("verification email sent", "host", s.config.Host, "port", s.config.Port)
	return nil
}

func (s *EmailService) buildVerificationMessage(to, code string) (*mail.Msg, error) {
	data := struct {
		Code      string
		ExpiresIn string
	}{
		Code:      auth.FormatCode(code),
		ExpiresIn: describeDuration(s.config.TokenTTL),
	}

	var text bytes.Buffer
	if err := verificationText.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("failed to render text body: %w", err)
	}
	var html bytes.Buffer
	if err := verificationHTML.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to render html body: %w", err)
	}

	msg := mail.NewMsg()
	if s.config.FromName != "" {
		if err := msg.FromFormat(s.config.FromName, s.config.From); err != nil {
			return nil, fmt.Errorf("invalid from address: %w", err)
		}
	} else if err := msg.From(s.config.From); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(verificationSubject)
	msg.SetBodyString(mail.TypeTextPlain, text.String())
	msg.AddAlternativeString(mail.TypeTextHTML, html.String())
	return msg, nil
}

// describeDuration renders whole hours as "N hours" and anything else with time.Duration.String.
func describeDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}
