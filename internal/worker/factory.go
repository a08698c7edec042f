package worker

import (
	"context"
	"fmt"

	"finarth/internal/config"
	"finarth/internal/log"
	"finarth/internal/mail"
	"finarth/internal/sheets"
	gsheet "finarth/internal/sheets/google"
	"finarth/internal/sheets/memory"
)

// NewExporter picks the spreadsheet mirror for holdings. Without a
// spreadsheet id the holdings are only kept in memory.
func NewExporter(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.HoldingExporter, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled, holdings mirrored in memory only")
		return memory.New(), nil
	}

	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("google sheets exporter: %w", err)
	}
	return client, nil
}

// NewMailer returns a SendGrid sender, or one that only logs the link when
// no API key is configured.
func NewMailer(cfg *config.Config, logger *log.Logger) mail.Sender {
	if cfg.SendGridAPIKey == "" {
		logger.Info("SENDGRID_API_KEY not set, verification links will be logged")
		return mail.NewLogSender(cfg.AppBaseURL, logger)
	}
	return mail.NewSendGridSender(cfg.SendGridAPIKey, cfg.MailFrom, cfg.AppBaseURL, logger)
}
