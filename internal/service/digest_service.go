package service

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"aulabot/internal/models"
)

// DigestService mails a summary of unread portal messages via Amazon SES
type DigestService struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
	toEmail   string
	enabled   bool
}

// NewDigestService creates a new digest service. It is disabled, and sending
// becomes a no-op, unless both a sender and a recipient are configured.
func NewDigestService(awsRegion, fromEmail, fromName, toEmail string) (*DigestService, error) {
	if fromEmail == "" || toEmail == "" {
		log.Println("Digest service disabled: SES_FROM_EMAIL or DIGEST_TO_EMAIL not configured")
		return &DigestService{enabled: false}, nil
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Digest service enabled: from=%s, to=%s, region=%s", fromEmail, toEmail, awsRegion)
	return &DigestService{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		toEmail:   toEmail,
		enabled:   true,
	}, nil
}

// IsEnabled returns whether the digest service is enabled
func (s *DigestService) IsEnabled() bool {
	return s.enabled
}

// SendUnreadDigest sends one email summarizing the given unread messages.
// Nothing is sent when the service is disabled or there are no messages.
func (s *DigestService) SendUnreadDigest(ctx context.Context, messages []models.Message) error {
	if !s.enabled {
		log.Println("Skipping digest send (service disabled)")
		return nil
	}
	if len(messages) == 0 {
		log.Println("Skipping digest send: no unread messages")
		return nil
	}

	subject, htmlBody, textBody := BuildDigest(messages)
	return s.sendEmail(ctx, subject, htmlBody, textBody)
}

// BuildDigest renders the digest subject and bodies for a set of unread
// messages. Message text may already contain portal HTML, so it is embedded
// as-is in the HTML body and stripped of tags in the text body.
func BuildDigest(messages []models.Message) (subject, htmlBody, textBody string) {
	subject = fmt.Sprintf("Aula: %d ulæste beskeder", len(messages))
	if len(messages) == 1 {
		subject = "Aula: 1 ulæst besked"
	}

	var htmlSections strings.Builder
	var textSections strings.Builder
	for _, msg := range messages {
		fmt.Fprintf(&htmlSections, `
		<div class="message">
			<h2>%s</h2>
			<p class="sender">Fra: %s</p>
			<div>%s</div>
		</div>`, html.EscapeString(msg.Subject), html.EscapeString(msg.Sender), msg.Text)

		fmt.Fprintf(&textSections, "%s\nFra: %s\n\n%s\n\n---\n\n", msg.Subject, msg.Sender, stripTags(msg.Text))
	}

	htmlBody = fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.message { background-color: #f9f9f9; padding: 20px; margin-bottom: 10px; border-radius: 5px; }
		.sender { color: #666; font-size: 13px; }
	</style>
</head>
<body>
	<div class="container">
		<h1>%s</h1>
		%s
	</div>
</body>
</html>
`, html.EscapeString(subject), htmlSections.String())

	textBody = subject + "\n\n" + textSections.String()
	return subject, htmlBody, textBody
}

// stripTags reduces portal HTML to plain text, well enough for the text
// alternative of the email.
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// sendEmail sends an email using Amazon SES
func (s *DigestService) sendEmail(ctx context.Context, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{s.toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send digest to %s: %w", s.toEmail, err)
	}

	log.Printf("Digest sent: to=%s, subject=%s", s.toEmail, subject)
	return nil
}
