package billing

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/medipay/medipay/internal/platform/auth"
	"github.com/medipay/medipay/internal/platform/mail"
)

var ErrMailUnavailable = errors.New("mail delivery is not configured")

// SetMailer enables EmailInvoice.
func (s *Service) SetMailer(m mail.Mailer) {
	s.mailer = m
}

// EmailInvoice sends the invoice as a PDF attachment to the viewer's own
// address.
func (s *Service) EmailInvoice(ctx context.Context, viewer auth.Principal, id string) error {
	if s.mailer == nil {
		return ErrMailUnavailable
	}
	inv, err := s.GetInvoice(ctx, viewer, id)
	if err != nil {
		return err
	}
	if viewer.Email == "" {
		return fmt.Errorf("no email address on file")
	}
	var buf bytes.Buffer
	if err := RenderInvoicePDF(&buf, inv); err != nil {
		return fmt.Errorf("render invoice: %w", err)
	}
	msg := mail.Message{
		To:      viewer.Email,
		Subject: fmt.Sprintf("Invoice %s from %s", inv.ID, inv.DoctorName),
		Body: fmt.Sprintf("Dear %s,\n\nPlease find attached invoice %s for %s (%s).\n",
			inv.PatientName, inv.ID, inv.Service, money(inv.Amount)),
		Attachments: []mail.Attachment{{Name: inv.ID + ".pdf", Data: buf.Bytes()}},
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("email invoice %s: %w", inv.ID, err)
	}
	s.logger.Info().Str("invoice_id", inv.ID).Str("user_id", viewer.UserID).Msg("invoice emailed")
	return nil
}
