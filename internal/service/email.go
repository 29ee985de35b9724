package service

import (
	"context"
	"fmt"
	"strings"

	"rentops-backend/internal/domain"
	"rentops-backend/internal/logger"
	"rentops-backend/internal/utils"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridClient is the part of *sendgrid.Client the email service needs.
type SendGridClient interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

type emailService struct {
	client    SendGridClient
	fromEmail string
	fromName  string
}

func NewEmailService(apiKey, fromEmail, fromName string) EmailService {
	return NewEmailServiceWithClient(sendgrid.NewSendClient(apiKey), fromEmail, fromName)
}

func NewEmailServiceWithClient(client SendGridClient, fromEmail, fromName string) EmailService {
	return &emailService{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *emailService) Send(ctx context.Context, to, subject, body string) error {
	return s.send(ctx, to, "", subject, body)
}

func (s *emailService) send(ctx context.Context, to, ccEmail, subject, body string) error {
	if to == "" {
		return fmt.Errorf("email recipient is required")
	}

	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(s.fromName, s.fromEmail))
	message.Subject = subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail("", to))
	if ccEmail != "" && !strings.EqualFold(ccEmail, to) {
		p.AddCCs(mail.NewEmail("", ccEmail))
	}
	message.AddPersonalizations(p)
	message.AddContent(mail.NewContent("text/plain", body))

	logger.ExternalServiceCall("sendgrid", "Send", "to", to, "subject", subject)
	response, err := s.client.Send(message)
	logger.ExternalServiceResult("sendgrid", "Send", err, "to", to)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}

func (s *emailService) SendRequestMessageNotification(ctx context.Context, to string, req *domain.MaintenanceRequest, msg *domain.ConversationMessage) error {
	subject, body := requestMessageEmail(req, msg)
	return s.send(ctx, to, "", subject, body)
}

func (s *emailService) SendPaymentRequestNotice(ctx context.Context, to, ccEmail string, notice InvoiceNotice) error {
	subject, body := paymentRequestEmail(notice)
	return s.send(ctx, to, ccEmail, subject, body)
}

func (s *emailService) SendPaymentReminder(ctx context.Context, to string, notice InvoiceNotice) error {
	subject, body := paymentReminderEmail(notice)
	return s.send(ctx, to, "", subject, body)
}

func requestMessageEmail(req *domain.MaintenanceRequest, msg *domain.ConversationMessage) (string, string) {
	subject := fmt.Sprintf("New message on maintenance request #%d", req.ID)
	body := fmt.Sprintf("Hello %s,\n\nThere is a new message on your maintenance request for %s:\n\n  Issue: %s\n\n%s\n\nReply from your request page to continue the conversation.\n\nRentOps",
		req.RequesterName, req.PropertyAddress, req.Issue, msg.Text)
	return subject, body
}

func paymentRequestEmail(n InvoiceNotice) (string, string) {
	subject := fmt.Sprintf("Payment request #%d for %s", n.PaymentRequestID, n.PropertyName)
	if n.Rebilled {
		subject = fmt.Sprintf("Updated payment request #%d for %s", n.PaymentRequestID, n.PropertyName)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Maintenance work at %s (%s) has been billed.\n\n", n.PropertyName, n.PropertyAddress)
	fmt.Fprintf(&b, "Work: %s\n", n.Description)
	fmt.Fprintf(&b, "Proposed budget: %s\n", utils.FormatNullMoney(n.ProposedBudget))
	fmt.Fprintf(&b, "Actual cost: %s\n", utils.FormatNullMoney(n.ActualCost))
	fmt.Fprintf(&b, "Amount due: %s\n", utils.FormatMoney(n.AmountDue))
	fmt.Fprintf(&b, "Due date: %s\n", n.DueDate.Format(utils.DateLayout))
	b.WriteString("\nRentOps")
	return subject, b.String()
}

func paymentReminderEmail(n InvoiceNotice) (string, string) {
	subject := fmt.Sprintf("Reminder: payment request #%d is overdue", n.PaymentRequestID)
	body := fmt.Sprintf("Payment request #%d for %s (%s) was due on %s.\n\nAmount due: %s\nWork: %s\n\nRentOps",
		n.PaymentRequestID, n.PropertyName, n.PropertyAddress, n.DueDate.Format(utils.DateLayout),
		utils.FormatMoney(n.AmountDue), n.Description)
	return subject, body
}

// logEmailService writes notifications to the log instead of sending them.
// Used when no SendGrid key is configured.
type logEmailService struct{}

func NewLogEmailService() EmailService {
	return &logEmailService{}
}

func (s *logEmailService) Send(ctx context.Context, to, subject, body string) error {
	logger.Info("Email (not sent)", "to", to, "subject", subject, "body", body)
	return nil
}

func (s *logEmailService) SendRequestMessageNotification(ctx context.Context, to string, req *domain.MaintenanceRequest, msg *domain.ConversationMessage) error {
	subject, body := requestMessageEmail(req, msg)
	return s.Send(ctx, to, subject, body)
}

func (s *logEmailService) SendPaymentRequestNotice(ctx context.Context, to, ccEmail string, notice InvoiceNotice) error {
	subject, body := paymentRequestEmail(notice)
	logger.Info("Email (not sent)", "to", to, "cc", ccEmail, "subject", subject, "body", body)
	return nil
}

func (s *logEmailService) SendPaymentReminder(ctx context.Context, to string, notice InvoiceNotice) error {
	subject, body := paymentReminderEmail(notice)
	return s.Send(ctx, to, subject, body)
}
