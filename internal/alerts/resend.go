package alerts

import (
	"context"
	"fmt"
	"net/http"

	resend "github.com/resend/resend-go/v3"
)

// ResendSender e-mails alerts to the operator list through Resend.
type ResendSender struct {
	client *resend.Client
	from   string
	to     []string
}

func NewResendSender(apiKey, from string, to []string, httpClient *http.Client) (*ResendSender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY is required for the resend alert provider")
	}
	if from == "" || len(to) == 0 {
		return nil, fmt.Errorf("ALERT_EMAIL_FROM and ALERT_EMAIL_TO are required for the resend alert provider")
	}

	client := resend.NewClient(apiKey)
	if httpClient != nil {
		client = resend.NewCustomClient(httpClient, apiKey)
	}
	return &ResendSender{client: client, from: from, to: to}, nil
}

func (s *ResendSender) Send(ctx context.Context, alert Alert) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      s.to,
		Subject: "[linkup] " + alert.Subject,
		Text:    alert.Text(),
		Tags: []resend.Tag{
			{Name: "kind", Value: alert.Kind},
		},
	}
	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send alert via resend: %w", err)
	}
	return nil
}
