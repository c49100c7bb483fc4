package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"tripsynth/internal/domain"
	"tripsynth/internal/platform/obs"

	"github.com/domodwyer/mailyak/v3"
)

// SMTPConfig holds the outgoing mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Mailer sends the plan document with the calendar attached.
type Mailer struct {
	cfg SMTPConfig
}

func NewMailer(cfg SMTPConfig) (*Mailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host is empty")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("smtp sender address is empty")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Mailer{cfg: cfg}, nil
}

func (m *Mailer) Send(ctx context.Context, to []string, it *domain.Itinerary) (err error) {
	defer obs.Time(ctx, "report.SendEmail")(&err)

	mail, err := m.compose(to, it)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := mail.Send(); err != nil {
		return fmt.Errorf("send itinerary %s: %w", it.ID, err)
	}
	return nil
}

func (m *Mailer) compose(to []string, it *domain.Itinerary) (*mailyak.MailYak, error) {
	var rcpt []string
	for _, addr := range to {
		if addr = strings.TrimSpace(addr); addr != "" {
			rcpt = append(rcpt, addr)
		}
	}
	if len(rcpt) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient is required", domain.ErrValidation)
	}

	attachment, err := Calendar(it)
	if err != nil {
		return nil, err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	mail := mailyak.New(net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port)), auth)
	mail.To(rcpt...)
	mail.From(m.cfg.From)
	if m.cfg.FromName != "" {
		mail.FromName(m.cfg.FromName)
	}
	mail.Subject(fmt.Sprintf("Your %s itinerary, %s", it.Trip.Destination, it.Trip.Dates))
	mail.Plain().Set(Document(it))
	mail.AttachWithMimeType("itinerary.ics", bytes.NewReader(attachment), "text/calendar")
	return mail, nil
}
