package sheets

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"facturas/internal/logger"
)

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// Service handles Google Sheets operations
type Service struct {
	sheetsService *sheets.Service
	spreadsheetID string
	log           zerolog.Logger
}

// NewSheetsService creates a new Google Sheets service
func NewSheetsService(ctx context.Context, sheetURL string) (*Service, error) {
	const op = "NewSheetsService"

	log := logger.WithComponent("sheets")

	spreadsheetID, err := ExtractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to extract spreadsheet ID: %w", op, err)
	}

	log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("Extracted spreadsheet ID")

	var creds []byte
	if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		creds, err = os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read credentials file: %w", op, err)
		}
	} else if credsJSON := os.Getenv("GOOGLE_CREDENTIALS"); credsJSON != "" {
		creds = []byte(credsJSON)
	} else {
		return nil, fmt.Errorf("%s: neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is set", op)
	}

	config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
	}

	sheetsService, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	return &Service{
		sheetsService: sheetsService,
		spreadsheetID: spreadsheetID,
		log:           log,
	}, nil
}

// ExtractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL
func ExtractSpreadsheetID(url string) (string, error) {
	matches := spreadsheetIDPattern.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", fmt.Errorf("invalid Google Sheets URL format")
	}
	return matches[1], nil
}

// WriteTaxReport appends one row per processed invoice to the named sheet, creating the
// sheet and its header row when missing.
func (s *Service) WriteTaxReport(ctx context.Context, rows []ReportRow, sheetName string) error {
	const op = "WriteTaxReport"

	s.log.Info().
		Str("sheet", sheetName).
		Int("rows", len(rows)).
		Msg("Writing tax report to Google Sheet")

	if len(rows) == 0 {
		return nil
	}

	if err := s.ensureSheetWithHeaders(ctx, sheetName); err != nil {
		return fmt.Errorf("%s: failed to ensure sheet exists: %w", op, err)
	}

	values := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		values = append(values, row.Values())
	}

	_, err := s.sheetsService.Spreadsheets.Values.Append(
		s.spreadsheetID,
		fmt.Sprintf("%s!A:%s", sheetName, lastColumn),
		&sheets.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to append values to sheet: %w", op, err)
	}

	s.log.Info().
		Int("rows_written", len(values)).
		Msg("Successfully wrote tax report to Google Sheet")

	return nil
}

// ensureSheetWithHeaders ensures the sheet exists and has proper headers
func (s *Service) ensureSheetWithHeaders(ctx context.Context, sheetName string) error {
	const op = "ensureSheetWithHeaders"

	spreadsheet, err := s.sheetsService.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get spreadsheet: %w", op, err)
	}

	var sheetExists bool
	var sheetID int64
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title == sheetName {
			sheetExists = true
			sheetID = sheet.Properties.SheetId
			break
		}
	}

	if !sheetExists {
		s.log.Info().Str("sheet", sheetName).Msg("Creating new sheet")

		batchUpdateReq := &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{
				{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: sheetName}}},
			},
		}
		resp, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, batchUpdateReq).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("%s: failed to create sheet: %w", op, err)
		}
		sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}

	headerRange := fmt.Sprintf("%s!A1:%s1", sheetName, lastColumn)
	resp, err := s.sheetsService.Spreadsheets.Values.Get(s.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get headers: %w", op, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	s.log.Info().Str("sheet", sheetName).Msg("Adding headers to sheet")

	header := make([]interface{}, len(ReportHeaders))
	for i, h := range ReportHeaders {
		header[i] = h
	}
	_, err = s.sheetsService.Spreadsheets.Values.Update(
		s.spreadsheetID,
		headerRange,
		&sheets.ValueRange{Values: [][]interface{}{header}},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to add headers: %w", op, err)
	}

	if err := s.formatHeaders(ctx, sheetID); err != nil {
		s.log.Warn().Err(err).Msg("Failed to format headers, continuing anyway")
	}
	return nil
}

// formatHeaders makes the header row bold and applies basic formatting
func (s *Service) formatHeaders(ctx context.Context, sheetID int64) error {
	const op = "formatHeaders"

	columns := int64(len(ReportHeaders))
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   columns,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{Bold: true},
						BackgroundColor: &sheets.Color{
							Red:   0.9,
							Green: 0.9,
							Blue:  0.9,
						},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   columns,
				},
			},
		},
	}

	batchUpdateReq := &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}
	if _, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, batchUpdateReq).Context(ctx).Do(); err != nil {
		return fmt.Errorf("%s: failed to format headers: %w", op, err)
	}
	return nil
}
