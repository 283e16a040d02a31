package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/Dan9191/studio-billing/internal/config"
	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendOverdueNotice tells a student that a monthly fee is past due
func (s *Sender) SendOverdueNotice(to, name string, period, dueDate time.Time, amount decimal.Decimal) error {
	subject := "Overdue Monthly Fee Notification"
	return s.send(to, subject, overdueBody(name, s.cfg.Currency, period, dueDate, amount))
}

// SendPaymentConfirmation thanks a student for a payment that was approved
func (s *Sender) SendPaymentConfirmation(to, name string, period time.Time, amount decimal.Decimal, paidAt time.Time) error {
	subject := "Monthly Fee Payment Confirmed"
	return s.send(to, subject, confirmationBody(name, s.cfg.Currency, period, amount, paidAt))
}

func (s *Sender) send(to, subject, body string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, subject)
	return nil
}

func overdueBody(name, currency string, period, dueDate time.Time, amount decimal.Decimal) string {
	body := fmt.Sprintf("Dear %s,\n\n", name)
	body += fmt.Sprintf(
		"Your monthly fee for %s of %s %s was due on %s and is now overdue.\n"+
			"Please make the payment as soon as possible.\n",
		period.Format("01/2006"), currency, amount.StringFixed(2), dueDate.Format("2006-01-02"),
	)
	body += "\nBest regards,\nStudio Billing"
	return body
}

func confirmationBody(name, currency string, period time.Time, amount decimal.Decimal, paidAt time.Time) string {
	body := fmt.Sprintf("Dear %s,\n\n", name)
	body += fmt.Sprintf(
		"We received your payment of %s %s for the monthly fee of %s.\n"+
			"Payment time: %s\n",
		currency, amount.StringFixed(2), period.Format("01/2006"), paidAt.Format("2006-01-02 15:04:05"),
	)
	body += "\nBest regards,\nStudio Billing"
	return body
}
