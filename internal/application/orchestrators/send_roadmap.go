package orchestrators

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	emailAdapter "mastery/internal/adapters/email"
	"mastery/internal/adapters/metrics"
	"mastery/internal/config"
)

// Roadmap email constants.
const (
	RoadmapSubject        = "Your Free Medicare Career Roadmap"
	RoadmapAttachmentName = "Medicare Career Roadmap.pdf"
	maxPDFSize            = 20 << 20
)

// Errors returned by ExecuteSendRoadmapEmail besides *config.ConfigurationError and
// *ExternalServiceError.
var (
	ErrMissingRoadmapFields = errors.New("Missing firstName or email")
	ErrPDFFetch             = errors.New("Failed to fetch PDF file")
)

// SendRoadmapInput is the email function's request body.
type SendRoadmapInput struct {
	FirstName string `json:"firstName"`
	Email     string `json:"email"`
}

// SendRoadmapResult is returned on success.
type SendRoadmapResult struct {
	EmailID string
}

// SendRoadmapDeps holds dependencies for ExecuteSendRoadmapEmail.
type SendRoadmapDeps struct {
	// Sender is nil when no Resend API key is configured.
	Sender     emailAdapter.Sender
	HTTPClient *http.Client
	PDFURL     string
	From       string
	Metrics    metrics.Recorder

	// MaxPDFBytes caps the attachment; zero means 20 MiB. Larger files fail the send.
	MaxPDFBytes int64
}

var roadmapHTML = template.Must(template.New("roadmap").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
      body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
      .header { background: linear-gradient(135deg, #DC143C 0%, #8B4789 100%); color: white; padding: 30px 20px; text-align: center; border-radius: 8px 8px 0 0; }
      .content { background: #ffffff; padding: 30px 20px; border: 1px solid #e5e7eb; border-top: none; }
      .footer { background: #f9fafb; padding: 20px; text-align: center; border: 1px solid #e5e7eb; border-top: none; border-radius: 0 0 8px 8px; font-size: 14px; color: #6b7280; }
    </style>
  </head>
  <body>
    <div class="header"><h1 style="margin: 0; font-size: 24px;">Medicare Mastery</h1></div>
    <div class="content">
      <p>Hi {{.FirstName}},</p>
      <p>Thanks for your interest in Medicare Mastery.</p>
      <p>Attached is your free <strong>Medicare Career Roadmap</strong>, which outlines the real path from zero experience to your first Medicare commission, including the delays, decisions and skills that actually matter.</p>
      <p>We'll be in touch with additional resources soon.</p>
      <p style="margin-top: 30px;">Best regards,<br><strong>Medicare Mastery Team</strong></p>
    </div>
    <div class="footer"><p style="margin: 0;">You're receiving this email because you requested the Medicare Career Roadmap.</p></div>
  </body>
</html>
`))

const roadmapText = `Hi %s,

Thanks for your interest in Medicare Mastery.

Attached is your free Medicare Career Roadmap, which outlines the real path from zero experience to your first Medicare commission, including the delays, decisions and skills that actually matter.

We'll be in touch with additional resources soon.

Medicare Mastery Team`

// ExecuteSendRoadmapEmail fetches the roadmap PDF and emails it to the requester.
// PRE: none (configuration is checked per request)
// POST: Returns the provider message id, or an error in the order: missing API key,
// missing fields, missing PDF URL, PDF fetch failure, provider failure
func ExecuteSendRoadmapEmail(ctx context.Context, in SendRoadmapInput, deps SendRoadmapDeps) (SendRoadmapResult, error) {
	rec := metrics.OrNop(deps.Metrics)

	if deps.Sender == nil {
		rec.RecordRoadmapEmail("not_configured")
		return SendRoadmapResult{}, config.Missing("RESEND_API_KEY")
	}
	firstName := strings.TrimSpace(in.FirstName)
	to := strings.TrimSpace(in.Email)
	if firstName == "" || to == "" {
		rec.RecordRoadmapEmail("bad_request")
		return SendRoadmapResult{}, ErrMissingRoadmapFields
	}
	if deps.PDFURL == "" {
		rec.RecordRoadmapEmail("not_configured")
		return SendRoadmapResult{}, config.Missing("ROADMAP_PDF_URL")
	}

	limit := deps.MaxPDFBytes
	if limit <= 0 {
		limit = maxPDFSize
	}
	pdf, err := fetchPDF(ctx, deps.HTTPClient, deps.PDFURL, limit)
	if err != nil {
		rec.RecordRoadmapEmail("pdf_failed")
		slog.Error("roadmap_pdf_fetch_failed", "error", err)
		return SendRoadmapResult{}, ErrPDFFetch
	}

	var html bytes.Buffer
	if err := roadmapHTML.Execute(&html, struct{ FirstName string }{firstName}); err != nil {
		return SendRoadmapResult{}, fmt.Errorf("render roadmap email: %w", err)
	}

	res, err := deps.Sender.Send(ctx, emailAdapter.SendRequest{
		To:      []string{to},
		From:    deps.From,
		Subject: RoadmapSubject,
		HTML:    html.String(),
		Text:    fmt.Sprintf(roadmapText, firstName),
		Attachments: []emailAdapter.Attachment{{
			Filename:    RoadmapAttachmentName,
			Content:     pdf,
			ContentType: "application/pdf",
		}},
	})
	if err != nil {
		rec.RecordRoadmapEmail("send_failed")
		slog.Error("resend_failed", "error", err)
		return SendRoadmapResult{}, &ExternalServiceError{Service: "resend", Status: http.StatusBadGateway, Message: err.Error()}
	}

	rec.RecordRoadmapEmail("sent")
	slog.Info("resend_sent", "message_id", res.MessageID, "subject", RoadmapSubject)
	return SendRoadmapResult{EmailID: res.MessageID}, nil
}

// fetchPDF downloads the attachment. A body over limit bytes is an error, never a truncated file.
func fetchPDF(ctx context.Context, hc *http.Client, url string, limit int64) ([]byte, error) {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("pdf source returned %d", resp.StatusCode)
	}
	pdf, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(pdf)) > limit {
		return nil, fmt.Errorf("pdf exceeds %d bytes", limit)
	}
	return pdf, nil
}

// InProcessMailer sends the roadmap without an HTTP hop. Errors look like the ones the
// hosted function would produce, so the capture flow treats both paths the same.
type InProcessMailer struct {
	Deps SendRoadmapDeps
}

// SendRoadmap implements RoadmapMailer.
func (m InProcessMailer) SendRoadmap(ctx context.Context, firstName, email string) (string, error) {
	res, err := ExecuteSendRoadmapEmail(ctx, SendRoadmapInput{FirstName: firstName, Email: email}, m.Deps)
	if err != nil {
		var ese *ExternalServiceError
		if errors.As(err, &ese) {
			return "", &ExternalServiceError{Service: "send-roadmap-email", Status: http.StatusInternalServerError, Message: ese.Message}
		}
		return "", &ExternalServiceError{Service: "send-roadmap-email", Status: RoadmapErrorStatus(err), Message: err.Error()}
	}
	return res.EmailID, nil
}

// RoadmapErrorStatus is the HTTP status the email function answers with for err.
func RoadmapErrorStatus(err error) int {
	if errors.Is(err, ErrMissingRoadmapFields) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
