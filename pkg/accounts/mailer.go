package accounts

import (
	"context"

	"github.com/mlomp/mairie-backend/pkg/observability"
)

// Mailer delivers password-reset tokens out-of-band. The HTTP response to a
// forgot-password request never carries the token.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogMailer is the development mailer: it logs the reset link instead of
// sending mail. Production deployments plug in a real delivery channel.
type LogMailer struct {
	Logger       *observability.Logger
	ResetLinkURL string
}

// SendPasswordReset logs the reset token for the operator to relay
func (m *LogMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	link := token
	if m.ResetLinkURL != "" {
		link = m.ResetLinkURL + "?token=" + token
	}
	if m.Logger != nil {
		m.Logger.Info("password reset issued", "email", email, "reset_link", link)
	}
	return nil
}
