package service

import (
	"context"
	"fmt"
	"html"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"grammardrill/internal/config"
	"grammardrill/internal/models"
)

// sesSender is the part of the SES v2 client the mailer uses
type sesSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService sends quiz result summaries via Amazon SES
type EmailService struct {
	client     sesSender
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
}

// NewEmailService creates a new email service. Without SES_FROM_EMAIL the
// service is created disabled and every send is a logged no-op.
func NewEmailService(cfg config.EmailConfig, debug bool) (*EmailService, error) {
	if cfg.FromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, debug: debug}, nil
	}

	if debug {
		log.Printf("[DEBUG] Initializing email service with AWS SES")
		log.Printf("[DEBUG] AWS Region: %s", cfg.AWSRegion)
		log.Printf("[DEBUG] From Email: %s", cfg.FromEmail)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Email service enabled: from=%s, region=%s", cfg.FromEmail, cfg.AWSRegion)

	return newEmailService(sesv2.NewFromConfig(awsCfg), cfg, debug), nil
}

func newEmailService(client sesSender, cfg config.EmailConfig, debug bool) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		appBaseURL: cfg.AppBaseURL,
		enabled:    true,
		debug:      debug,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendQuizResults emails a completion summary of a quiz session
func (s *EmailService) SendQuizResults(ctx context.Context, toEmail string, drill *models.Drill, progress models.Progress) error {
	if !s.enabled {
		if s.debug {
			log.Printf("[DEBUG] Skipping email send (service disabled): results to %s", toEmail)
		}
		return nil
	}

	drillLink := fmt.Sprintf("%s/drills/%d", s.appBaseURL, drill.ID)
	subject := fmt.Sprintf("Quiz complete: %s", drill.Title)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #4a90e2; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Quiz complete!</h1>
		</div>
		<div class="content">
			<p>You mastered every question of <strong>%s</strong> (%s, %s).</p>
			<ul>
				<li>Questions: %d</li>
				<li>Attempts: %d</li>
				<li>Accuracy: %.0f%%</li>
			</ul>
			<p><a href="%s">Practice this drill again</a></p>
		</div>
		<div class="footer">
			<p>This is an automated email from Grammar Drill. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, html.EscapeString(drill.Title), html.EscapeString(drill.TargetLanguage), html.EscapeString(drill.GrammarConcept),
		progress.Total, progress.TotalAttempts, progress.Accuracy, drillLink)

	textBody := fmt.Sprintf(`You mastered every question of "%s" (%s, %s).

Questions: %d
Attempts: %d
Accuracy: %.0f%%

Practice this drill again: %s

---
This is an automated email from Grammar Drill. Please do not reply.
`, drill.Title, drill.TargetLanguage, drill.GrammarConcept,
		progress.Total, progress.TotalAttempts, progress.Accuracy, drillLink)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
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

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if s.debug && result.MessageId != nil {
		log.Printf("[DEBUG] SES message ID: %s", *result.MessageId)
	}

	log.Printf("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}
