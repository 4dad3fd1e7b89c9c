package email

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"

	"quality-backend/internal/config"
	"quality-backend/internal/models"
)

// Service handles email operations
type Service struct {
	config *config.EmailConfig
}

// NewService creates a new email service
func NewService(cfg *config.EmailConfig) *Service {
	return &Service{
		config: cfg,
	}
}

// SendPeriodReport sends the aggregated quality report for a period
func (s *Service) SendPeriodReport(to []string, report *models.PeriodReport) error {
	subject := fmt.Sprintf("Quality report %s - %s",
		report.From.Format("2006-01-02"), report.To.Format("2006-01-02"))

	sectorRows := ""
	for _, bucket := range report.RevisionsBySector {
		sectorRows += fmt.Sprintf(
			`<tr><td style="padding: 8px; border-bottom: 1px solid #ddd;">%s</td><td style="padding: 8px; border-bottom: 1px solid #ddd; text-align: right;">%d</td></tr>`,
			bucket.Name, bucket.Count)
	}
	if sectorRows == "" {
		sectorRows = `<tr><td colspan="2" style="padding: 8px; color: #999;">No revisions in this period</td></tr>`
	}

	defectRows := ""
	for _, bucket := range report.DefectsByType {
		defectRows += fmt.Sprintf(
			`<tr><td style="padding: 8px; border-bottom: 1px solid #ddd;">%s</td><td style="padding: 8px; border-bottom: 1px solid #ddd; text-align: right;">%d</td></tr>`,
			bucket.Name, bucket.Count)
	}
	if defectRows == "" {
		defectRows = `<tr><td colspan="2" style="padding: 8px; color: #999;">No defects recorded</td></tr>`
	}

	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Quality Report</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #4a90e2;">Quality report %s - %s</h2>

        <table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
            <tr><td style="padding: 8px; border-bottom: 1px solid #ddd;"><strong>Revisions</strong></td><td style="padding: 8px; border-bottom: 1px solid #ddd; text-align: right;">%d</td></tr>
            <tr><td style="padding: 8px; border-bottom: 1px solid #ddd;"><strong>Pieces inspected</strong></td><td style="padding: 8px; border-bottom: 1px solid #ddd; text-align: right;">%d</td></tr>
            <tr><td style="padding: 8px; border-bottom: 1px solid #ddd;"><strong>Pieces approved</strong></td><td style="padding: 8px; border-bottom: 1px solid #ddd; text-align: right;">%d</td></tr>
            <tr><td style="padding: 8px; border-bottom: 1px solid #ddd;"><strong>Pieces rejected</strong></td><td style="padding: 8px; border-bottom: 1px solid #ddd; text-align: right;">%d</td></tr>
            <tr><td style="padding: 8px; border-bottom: 1px solid #ddd;"><strong>Approval rate</strong></td><td style="padding: 8px; border-bottom: 1px solid #ddd; text-align: right;">%.1f%%</td></tr>
            <tr><td style="padding: 8px;"><strong>Inspection time</strong></td><td style="padding: 8px; text-align: right;">%dh %02dmin</td></tr>
        </table>

        <h3 style="color: #4a90e2;">Revisions by sector</h3>
        <table style="width: 100%%; border-collapse: collapse; margin: 10px 0;">
            %s
        </table>

        <h3 style="color: #4a90e2;">Defects by type</h3>
        <table style="width: 100%%; border-collapse: collapse; margin: 10px 0;">
            %s
        </table>

        <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
        <p style="color: #999; font-size: 12px;">This is an automated email. Please do not reply.</p>
    </div>
</body>
</html>
`,
		report.From.Format("2006-01-02"), report.To.Format("2006-01-02"),
		report.RevisionCount,
		report.TotalInspected,
		report.TotalApproved,
		report.TotalRejected,
		report.ApprovalRate,
		report.TotalMinutes/60, report.TotalMinutes%60,
		sectorRows,
		defectRows,
	)

	var lastErr error
	for _, recipient := range to {
		if err := s.sendEmail(recipient, subject, body); err != nil {
			slog.Error("Failed to send period report", "to", recipient, "error", err)
			lastErr = err
		}
	}
	return lastErr
}

func (s *Service) sendEmail(to, subject, body string) error {
	headers := map[string]string{
		"From":         s.config.SMTPFrom,
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
	}

	var message bytes.Buffer
	for k, v := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	message.WriteString("\r\n")
	message.WriteString(body)

	addr := net.JoinHostPort(s.config.SMTPHost, s.config.SMTPPort)
	slog.Debug("Attempting to connect to SMTP server",
		"address", addr,
		"host", s.config.SMTPHost,
		"port", s.config.SMTPPort,
	)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		slog.Error("Failed to connect to SMTP server",
			"address", addr,
			"error", err,
		)
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func(conn net.Conn) {
		if err := conn.Close(); err != nil {
			slog.Error("Failed to close SMTP connection", "error", err)
		}
	}(conn)

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		slog.Error("Failed to create SMTP client", "error", err)
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func(client *smtp.Client) {
		if err := client.Close(); err != nil {
			slog.Error("Failed to close SMTP client", "error", err)
		}
	}(client)

	// Authenticate only if credentials are provided and not empty
	// For development (e.g., Mailpit), no authentication is needed
	if s.config.SMTPUsername != "" && s.config.SMTPPassword != "" {
		auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
		_ = client.Auth(auth)
	}

	if err := client.Mail(s.config.SMTPFrom); err != nil {
		slog.Error("Failed to set sender",
			"from", s.config.SMTPFrom,
			"error", err,
		)
		return fmt.Errorf("failed to set sender: %w", err)
	}

	if err := client.Rcpt(to); err != nil {
		slog.Error("Failed to set recipient",
			"to", to,
			"error", err,
		)
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		slog.Error("Failed to initiate data transfer", "error", err)
		return fmt.Errorf("failed to initiate data transfer: %w", err)
	}
	defer func(wc io.WriteCloser) {
		if err := wc.Close(); err != nil {
			slog.Error("Failed to close write closer", "error", err)
		}
	}(wc)

	if _, err := wc.Write(message.Bytes()); err != nil {
		slog.Error("Failed to write message", "error", err)
		return fmt.Errorf("failed to write message: %w", err)
	}

	slog.Info("Email sent successfully", "to", to)

	return nil
}
