package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"famledger/internal/models"
)

// EmailService sends transactional email via Amazon SES. With no from
// address configured it runs disabled and every send becomes a logged no-op,
// which keeps local development working without AWS credentials.
type EmailService struct {
	client     *sesv2.Client
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
}

// NewEmailService creates a new email service
func NewEmailService(awsRegion, fromEmail, fromName, appBaseURL string) (*EmailService, error) {
	if fromEmail == "" {
		slog.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false}, nil
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	slog.Info("email service enabled", "from", fromEmail, "region", awsRegion)
	return &EmailService{
		client:     sesv2.NewFromConfig(cfg),
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendInviteEmail notifies someone that they have been invited to a family.
func (s *EmailService) SendInviteEmail(ctx context.Context, toEmail, familyName, inviterName string, role models.Role, expiresAt time.Time) error {
	if !s.enabled {
		slog.Info("skipping email send (service disabled)", "kind", "invite", "to", toEmail)
		return nil
	}

	if inviterName == "" {
		inviterName = "A family member"
	}
	invitesLink := fmt.Sprintf("%s/invites", s.appBaseURL)
	expiry := expiresAt.Format("January 2, 2006")

	subject := fmt.Sprintf("You've been invited to join %s on FamLedger", familyName)
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #2e7d52; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #2e7d52; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Family Invitation</h1>
		</div>
		<div class="content">
			<p>Hi,</p>
			<p>%s has invited you to join the family <strong>%s</strong> on FamLedger as a %s.</p>
			<p>Log in with this email address to accept or decline the invitation:</p>
			<p style="text-align: center;">
				<a href="%s" class="button">View Invitation</a>
			</p>
			<p><strong>This invitation expires on %s.</strong></p>
			<p>If you weren't expecting this invitation, you can safely ignore this email.</p>
		</div>
		<div class="footer">
			<p>This is an automated email from FamLedger. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, inviterName, familyName, role, invitesLink, expiry)

	textBody := fmt.Sprintf(`Hi,

%s has invited you to join the family %s on FamLedger as a %s.

Log in with this email address to accept or decline the invitation:
%s

This invitation expires on %s.

If you weren't expecting this invitation, you can safely ignore this email.

---
This is an automated email from FamLedger. Please do not reply.
`, inviterName, familyName, role, invitesLink, expiry)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendWelcomeEmail sends a welcome email to new users
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	if !s.enabled {
		slog.Info("skipping email send (service disabled)", "kind", "welcome", "to", toEmail)
		return nil
	}

	subject := "Welcome to FamLedger!"
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #2e7d52; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #2e7d52; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Welcome to FamLedger!</h1>
		</div>
		<div class="content">
			<p>Hi %s,</p>
			<p>Thank you for creating your FamLedger account! You now have a place to track income, expenses and savings goals, alone or together with your family.</p>
			<p>Here's what you can do next:</p>
			<ul>
				<li>Record your income and expenses</li>
				<li>Set savings goals and track their progress</li>
				<li>Create a family and invite the people you share money with</li>
				<li>Watch your monthly balance and savings rate on the dashboard</li>
			</ul>
			<p style="text-align: center;">
				<a href="%s" class="button">Get Started</a>
			</p>
		</div>
		<div class="footer">
			<p>This is an automated email from FamLedger. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, toName, s.appBaseURL)

	textBody := fmt.Sprintf(`Hi %s,

Thank you for creating your FamLedger account! You now have a place to track income, expenses and savings goals, alone or together with your family.

Here's what you can do next:
- Record your income and expenses
- Set savings goals and track their progress
- Create a family and invite the people you share money with
- Watch your monthly balance and savings rate on the dashboard

Get started: %s

---
This is an automated email from FamLedger. Please do not reply.
`, toName, s.appBaseURL)

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

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	slog.Info("email sent", "to", toEmail, "subject", subject)
	return nil
}
