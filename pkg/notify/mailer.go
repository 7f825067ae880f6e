// Package notify sends the email side of workflow notifications.
package notify

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrMissingRecipient = errors.New("email recipient is required")
	ErrMailerDisabled   = errors.New("no mailer configured")
)

type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Link    string `json:"link,omitempty"`
}

type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// DisabledMailer rejects every email; used when neither SMTP nor a mail service is configured.
type DisabledMailer struct{}

func (DisabledMailer) Send(context.Context, Email) error {
	return ErrMailerDisabled
}

var thirdPartySecretPrefixes = []string{"sk-", "sk_live_", "re_", "SG.", "xoxb-"}

// LooksLikeThirdPartySecret reports whether token has the shape of a vendor API key,
// which means an internal service token was misconfigured.
func LooksLikeThirdPartySecret(token string) bool {
	for _, prefix := range thirdPartySecretPrefixes {
		if strings.HasPrefix(token, prefix) {
			return true
		}
	}

	return false
}

func textBody(email Email) string {
	if email.Link == "" {
		return email.Body
	}

	return email.Body + "\n\n" + email.Link
}
