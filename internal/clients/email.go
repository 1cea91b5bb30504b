package clients

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"schoolpay/internal/domain"
)

type EmailAttachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

type EmailMessage struct {
	ToName     string
	To         string
	Subject    string
	Body       string
	Attachment *EmailAttachment
}

// EmailSender delivers a single message synchronously so the caller can
// record the outcome in the delivery audit log.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

type SendGridSender struct {
	key  string
	from *sgmail.Email
}

func NewSendGridSender(key, fromName, fromEmail string) *SendGridSender {
	return &SendGridSender{
		key:  key,
		from: sgmail.NewEmail(fromName, fromEmail),
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.To))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Body))

	if at := msg.Attachment; at != nil {
		m.AddAttachment(&sgmail.Attachment{
			Content:     base64.StdEncoding.EncodeToString(at.Content),
			Type:        at.ContentType,
			Filename:    at.Filename,
			Disposition: "attachment",
		})
	}

	req := sendgrid.GetRequest(s.key, "/v3/mail/send", "https://api.sendgrid.com")
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return &domain.DeliveryError{Recipient: msg.To, Err: err}
	}
	if res.StatusCode >= http.StatusBadRequest {
		return &domain.DeliveryError{
			Recipient: msg.To,
			Err:       fmt.Errorf("sendgrid returned status %d", res.StatusCode),
		}
	}
	return nil
}

// ConsoleSender logs instead of delivering; used in development and tests.
type ConsoleSender struct{}

func (ConsoleSender) Send(ctx context.Context, msg EmailMessage) error {
	attached := ""
	if msg.Attachment != nil {
		attached = fmt.Sprintf(" attachment=%s (%d bytes)", msg.Attachment.Filename, len(msg.Attachment.Content))
	}
	log.Printf("[EMAIL] to=%s subject=%q%s\n%s", msg.To, msg.Subject, attached, msg.Body)
	return nil
}
