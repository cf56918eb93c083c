// Package email sends customer-facing notifications over SMTP.
package email

import (
	"context"
	"fmt"

	"taller_backend/platform/config"
	"taller_backend/platform/logger"

	"github.com/wneessen/go-mail"
)

// PickupNotice is the content of the "order ready for pickup" email.
type PickupNotice struct {
	OrderNumber  string
	CustomerName string
	To           string
	DeviceLabel  string
	RepairResult string
}

// Sender delivers customer emails. When email is disabled in config every
// send is a silent no-op so callers never need to branch.
type Sender struct {
	cfg config.EmailConfig
	log *logger.Logger
}

// NewSender creates a new SMTP sender.
func NewSender(cfg config.EmailConfig, log *logger.Logger) *Sender {
	return &Sender{cfg: cfg, log: log}
}

// SendPickupNotice emails the customer that their device is ready for pickup.
func (s *Sender) SendPickupNotice(ctx context.Context, notice PickupNotice) error {
	if !s.cfg.GetEmailEnabled() {
		return nil
	}
	if notice.To == "" {
		s.log.Debug("skipping pickup notice, customer has no email", "order_number", notice.OrderNumber)
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(s.cfg.GetEmailFromName(), s.cfg.GetEmailFromAddress()); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(notice.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(fmt.Sprintf("Tu orden %s está lista para recoger", notice.OrderNumber))
	msg.SetBodyString(mail.TypeTextPlain, pickupBody(notice))

	client, err := mail.NewClient(s.cfg.GetSMTPHost(),
		mail.WithPort(s.cfg.GetSMTPPort()),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.GetSMTPUsername()),
		mail.WithPassword(s.cfg.GetSMTPPassword()),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send pickup notice: %w", err)
	}

	s.log.Info("pickup notice sent", "order_number", notice.OrderNumber, "to", notice.To)
	return nil
}

func pickupBody(notice PickupNotice) string {
	outcome := "Tu equipo fue reparado con éxito."
	if notice.RepairResult == "not_repaired" {
		outcome = "Lamentablemente tu equipo no pudo ser reparado."
	}

	return fmt.Sprintf(
		"Hola %s,\n\n%s\n\nOrden: %s\nEquipo: %s\n\nYa puedes pasar a recogerlo en nuestro taller.\n",
		notice.CustomerName, outcome, notice.OrderNumber, notice.DeviceLabel,
	)
}
