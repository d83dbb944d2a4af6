package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"citycar-backend/internal/queue"
)

type emailService struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewEmailService(apiKey, fromEmail, fromName string) EmailService {
	return &emailService{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromEmail),
	}
}

const emailDateLayout = "Monday, January 2, 2006"

func (s *emailService) SendLeaseConfirmation(ctx context.Context, to, carName string, start, end time.Time, amountCents int64) error {
	subject := "Your lease is confirmed"
	body := fmt.Sprintf(
		"Hello,\n\nYour lease of the %s is confirmed.\n\nStart date: %s\nEnd date: %s\nAmount charged: %s\n\nEnjoy the ride!\nThe CityCar Team",
		carName,
		start.Format(emailDateLayout),
		end.Format(emailDateLayout),
		formatAmount(amountCents),
	)
	return s.send(ctx, to, subject, body)
}

func (s *emailService) SendLeaseExtended(ctx context.Context, to, carName string, newEnd time.Time, amountCents int64) error {
	subject := "Your lease extension is confirmed"
	body := fmt.Sprintf(
		"Hello,\n\nYour lease of the %s has been extended.\n\nNew end date: %s\nAmount charged: %s\n\nEnjoy the ride!\nThe CityCar Team",
		carName,
		newEnd.Format(emailDateLayout),
		formatAmount(amountCents),
	)
	return s.send(ctx, to, subject, body)
}

func (s *emailService) SendLeaseReminder(ctx context.Context, to, carName string, end time.Time) error {
	subject := "Your lease ends soon"
	body := fmt.Sprintf(
		"Hello,\n\nYour lease of the %s ends on %s.\n\nPlease return the car on time, or extend your lease from your account before it expires.\n\nThe CityCar Team",
		carName,
		end.Format(emailDateLayout),
	)
	return s.send(ctx, to, subject, body)
}

func (s *emailService) send(ctx context.Context, to, subject, body string) error {
	message := mail.NewSingleEmailPlainText(s.from, subject, mail.NewEmail("", to), body)
	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func formatAmount(cents int64) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}

// RegisterEmailHandlers binds the notification job names to email sends so
// the queue workers can deliver them.
func RegisterEmailHandlers(q *queue.Queue, emails EmailService) {
	q.Register(queue.JobLeaseConfirmation, func(ctx context.Context, job queue.Job) error {
		var p EmailJobPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return err
		}
		return emails.SendLeaseConfirmation(ctx, p.To, p.CarName, p.StartDate, p.EndDate, p.AmountCents)
	})
	q.Register(queue.JobLeaseExtended, func(ctx context.Context, job queue.Job) error {
		var p EmailJobPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return err
		}
		return emails.SendLeaseExtended(ctx, p.To, p.CarName, p.EndDate, p.AmountCents)
	})
	q.Register(queue.JobLeaseReminder, func(ctx context.Context, job queue.Job) error {
		var p EmailJobPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return err
		}
		return emails.SendLeaseReminder(ctx, p.To, p.CarName, p.EndDate)
	})
}
