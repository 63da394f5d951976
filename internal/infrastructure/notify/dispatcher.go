package notify

import (
	"context"
	"fmt"

	"github.com/farmgate/farmgate-api/internal/domain"
	"github.com/farmgate/farmgate-api/internal/infrastructure/smtp"
	"github.com/farmgate/farmgate-api/internal/infrastructure/sns"
)

const emailSubject = "Your FarmGate verification code"

// Dispatcher routes an OTP message to the channel matching the identifier.
// Either transport may be nil when its backend is unavailable at startup;
// sends over a missing transport fail instead of panicking.
type Dispatcher struct {
	sms    sns.SMSSender
	mailer smtp.Mailer
}

func NewDispatcher(sms sns.SMSSender, mailer smtp.Mailer) *Dispatcher {
	return &Dispatcher{sms: sms, mailer: mailer}
}

// Send delivers message to identifier over channel. The caller bounds the
// call with a context deadline; SMTP has no context support, so the email
// branch runs in a goroutine and the deadline is enforced here.
func (d *Dispatcher) Send(ctx context.Context, channel domain.Channel, identifier, message string) error {
	switch channel {
	case domain.ChannelSMS:
		if d.sms == nil {
			return fmt.Errorf("sms transport not configured")
		}
		return d.sms.SendSMS(ctx, identifier, message)
	case domain.ChannelEmail:
		if d.mailer == nil {
			return fmt.Errorf("email transport not configured")
		}
		errCh := make(chan error, 1)
		go func() {
			errCh <- d.mailer.SendEmail(identifier, emailSubject, message)
		}()
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	default:
		return fmt.Errorf("unknown channel %q", channel)
	}
}
