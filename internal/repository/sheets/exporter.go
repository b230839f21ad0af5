package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"salakbook/internal/config"
	"salakbook/internal/domain/models"
)

const (
	summaryRange = "Summaries!A:H"
	dateLayout   = "2006-01-02"
)

// Exporter appends daily summaries to a Google Sheet for the farm's
// bookkeeper. It is an optional sink; the system runs fine without it.
type Exporter struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewExporter builds a Google Sheets backed exporter instance.
func NewExporter(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*Exporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &Exporter{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// AppendDailySummary appends one summary row: user, date, the four farm
// counts in fixed order, total bakul and estimated mass.
func (e *Exporter) AppendDailySummary(ctx context.Context, summary models.DailySummary) error {
	row := []interface{}{summary.User, summary.Date.Format(dateLayout)}
	for _, farm := range models.Farms {
		row = append(row, summary.PerFarm[farm])
	}
	row = append(row, summary.TotalBakul, summary.EstimatedKg)

	payload := &sheetsapi.ValueRange{Values: [][]interface{}{row}}

	call := e.service.Spreadsheets.Values.Append(e.spreadsheetID, summaryRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append summary row: %w", err)
	}

	e.logger.Debug("summary row appended to sheet", zap.String("user", summary.User))
	return nil
}
