package mailer

import (
	"time"

	"github.com/expohall/expohall-api/pkg/logger"
)

// DevMailer logs outgoing mail instead of delivering it.
type DevMailer struct{}

func NewDevMailer() *DevMailer { return &DevMailer{} }

func (d *DevMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	logger.Info("dev mailer: email suppressed",
		"to", toEmail,
		"subject", subject,
		"text", text,
	)
	return "dev", nil
}

func (d *DevMailer) SendMagicLink(email, name, link, qrDataURI string, expiresIn time.Duration) error {
	logger.Info("dev mailer: magic link suppressed",
		"to", email,
		"link", link,
		"expires_in", expiresIn.String(),
	)
	return nil
}
