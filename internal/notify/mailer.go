// Package notify implements outbound email: a Mailer with one method per
// template family and a Redis Streams batch queue that paces delivery so a
// large invitation fan-out never blocks the request that triggered it.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// InviteParams parameterizes the casting invitation email.
type InviteParams struct {
	CreatorName  string `json:"creatorName"`
	CastingTitle string `json:"castingTitle"`
	ClientName   string `json:"clientName"`
	Compensation string `json:"compensation"`
	RespondURL   string `json:"respondUrl"`
}

// ApprovedParams parameterizes the shooting-confirmation emails. BriefingURL
// is only set for the with-briefing template family.
type ApprovedParams struct {
	CreatorName  string `json:"creatorName"`
	CastingTitle string `json:"castingTitle"`
	ClientName   string `json:"clientName"`
	BriefingURL  string `json:"briefingUrl,omitempty"`
	UploadURL    string `json:"uploadUrl,omitempty"`
}

// CastingParams parameterizes the simpler per-casting notices.
type CastingParams struct {
	RecipientName string `json:"recipientName"`
	CastingTitle  string `json:"castingTitle"`
	ClientName    string `json:"clientName"`
	CastingURL    string `json:"castingUrl,omitempty"`
}

// Mailer sends one email per call, one method per template family.
type Mailer interface {
	SendCastingInvite(ctx context.Context, to string, p InviteParams) error
	SendApprovedWithBriefing(ctx context.Context, to string, p ApprovedParams) error
	SendApprovedWithoutBriefing(ctx context.Context, to string, p ApprovedParams) error
	SendNotSelected(ctx context.Context, to string, p CastingParams) error
	SendCastingClosed(ctx context.Context, to string, p CastingParams) error
	SendBriefingReady(ctx context.Context, to string, p CastingParams) error
	SendReviewReady(ctx context.Context, to string, p CastingParams) error
}

// SMTPMailer sends plain-text emails over SMTP.
type SMTPMailer struct {
	addr   string
	from   string
	auth   smtp.Auth
	logger *logrus.Logger
}

// NewSMTPMailer reads SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD and
// SMTP_FROM from the environment.
func NewSMTPMailer(logger *logrus.Logger) (*SMTPMailer, error) {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return nil, fmt.Errorf("SMTP_HOST environment variable not set")
	}
	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		return nil, fmt.Errorf("SMTP_FROM environment variable not set")
	}

	var auth smtp.Auth
	if username := os.Getenv("SMTP_USERNAME"); username != "" {
		auth = smtp.PlainAuth("", username, os.Getenv("SMTP_PASSWORD"), host)
	}

	return &SMTPMailer{
		addr:   host + ":" + port,
		from:   from,
		auth:   auth,
		logger: logger,
	}, nil
}

func (m *SMTPMailer) send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")
	return smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg))
}

func (m *SMTPMailer) SendCastingInvite(_ context.Context, to string, p InviteParams) error {
	subject := fmt.Sprintf("You're invited to the casting \"%s\"", p.CastingTitle)
	body := fmt.Sprintf(
		"Hi %s,\n\n%s is casting creators for \"%s\" (compensation: %s).\n\nAccept or decline here: %s\n",
		p.CreatorName, p.ClientName, p.CastingTitle, p.Compensation, p.RespondURL)
	return m.send(to, subject, body)
}

func (m *SMTPMailer) SendApprovedWithBriefing(_ context.Context, to string, p ApprovedParams) error {
	subject := fmt.Sprintf("You're confirmed for \"%s\" — briefing attached", p.CastingTitle)
	body := fmt.Sprintf(
		"Hi %s,\n\nGreat news: %s confirmed you for \"%s\".\n\nYour briefing: %s\nUpload your content here: %s\n",
		p.CreatorName, p.ClientName, p.CastingTitle, p.BriefingURL, p.UploadURL)
	return m.send(to, subject, body)
}

func (m *SMTPMailer) SendApprovedWithoutBriefing(_ context.Context, to string, p ApprovedParams) error {
	subject := fmt.Sprintf("You're confirmed for \"%s\"", p.CastingTitle)
	body := fmt.Sprintf(
		"Hi %s,\n\nGreat news: %s confirmed you for \"%s\".\n\nThe briefing will follow as soon as it is ready. Upload your content here: %s\n",
		p.CreatorName, p.ClientName, p.CastingTitle, p.UploadURL)
	return m.send(to, subject, body)
}

func (m *SMTPMailer) SendNotSelected(_ context.Context, to string, p CastingParams) error {
	subject := fmt.Sprintf("Update on the casting \"%s\"", p.CastingTitle)
	body := fmt.Sprintf(
		"Hi %s,\n\nThank you for your interest in \"%s\". %s went with other creators this time.\n\nWe'd love to work with you on a future casting.\n",
		p.RecipientName, p.CastingTitle, p.ClientName)
	return m.send(to, subject, body)
}

func (m *SMTPMailer) SendCastingClosed(_ context.Context, to string, p CastingParams) error {
	subject := fmt.Sprintf("The casting \"%s\" has closed", p.CastingTitle)
	body := fmt.Sprintf(
		"Hi %s,\n\nThe casting \"%s\" by %s closed before we received your response, so your invitation has expired.\n",
		p.RecipientName, p.CastingTitle, p.ClientName)
	return m.send(to, subject, body)
}

func (m *SMTPMailer) SendBriefingReady(_ context.Context, to string, p CastingParams) error {
	subject := fmt.Sprintf("Briefing ready for \"%s\"", p.CastingTitle)
	body := fmt.Sprintf(
		"Hi %s,\n\nThe briefing for \"%s\" is approved and ready: %s\n",
		p.RecipientName, p.CastingTitle, p.CastingURL)
	return m.send(to, subject, body)
}

func (m *SMTPMailer) SendReviewReady(_ context.Context, to string, p CastingParams) error {
	subject := fmt.Sprintf("\"%s\" is ready for your review", p.CastingTitle)
	body := fmt.Sprintf(
		"Hi %s,\n\nThe creator shortlist for \"%s\" is ready for your feedback: %s\n",
		p.RecipientName, p.CastingTitle, p.CastingURL)
	return m.send(to, subject, body)
}
