package mailer

import "time"

type Service interface {
	Send(toEmail, toName, subject, text, html string) (string, error)
	SendMagicLink(email, name, link, qrDataURI string, expiresIn time.Duration) error
}
