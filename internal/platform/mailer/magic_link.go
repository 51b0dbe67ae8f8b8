package mailer

import (
	"fmt"
	"time"
)

// magicLinkBodies builds the shared text/HTML bodies for magic-link mail so
// the SMTP and MailerSend paths render identically.
func magicLinkBodies(name, link, qrDataURI string, expiresIn time.Duration) (subject, text, html string) {
	days := int(expiresIn.Hours() / 24)
	subject = "Your ExpoHall sign-in link"
	text = fmt.Sprintf(
		"Hi %s,\n\nSign in to your exhibitor dashboard with this link:\n%s\n\nThe link expires in %d days.",
		name, link, days,
	)
	html = fmt.Sprintf(
		`<p>Hi %s,</p>
<p><a href="%s">Open your exhibitor dashboard</a>, no password needed.</p>
<p>Or scan this code at the venue:</p>
<p><img src="%s" alt="sign-in QR code" width="256" height="256"/></p>
<p>The link expires in %d days.</p>`,
		name, link, qrDataURI, days,
	)
	return subject, text, html
}
