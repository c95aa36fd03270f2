package tracker

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/trendgist/internal/config"
	"github.com/trendgist/internal/models"
	"github.com/trendgist/pkg/logger"
)

// SheetColumns defines the column headers for the gists tracking sheet
var SheetColumns = []string{
	"Gist ID",
	"Trend ID",
	"Topic",
	"Category",
	"Headline",
	"Narration Preview",
	"Image URL",
	"Image Source",
	"Source URL",
	"Published At",
}

const previewChars = 200

// TrackedGist is one row of the tracking sheet
type TrackedGist struct {
	GistID           string
	TrendID          string
	Topic            string
	Category         string
	Headline         string
	NarrationPreview string
	ImageURL         string
	ImageSource      string
	SourceURL        string
	PublishedAt      time.Time
}

// SheetsTracker appends a row per published gist to a Google Sheet
type SheetsTracker struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	log           *logger.Logger
}

// NewSheetsTracker creates a new Google Sheets tracker. It returns nil when disabled.
func NewSheetsTracker(ctx context.Context, cfg config.TrackerConfig, log *logger.Logger) (*SheetsTracker, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var opts []option.ClientOption
	// Try service account JSON first (for env var injection)
	if cfg.ServiceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)))
	} else if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	} else {
		return nil, fmt.Errorf("no Google credentials provided: set credentials_file or service_account_json")
	}

	return newSheetsTracker(ctx, cfg, log, opts...)
}

func newSheetsTracker(ctx context.Context, cfg config.TrackerConfig, log *logger.Logger, opts ...option.ClientOption) (*SheetsTracker, error) {
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	sheetName := cfg.SheetName
	if sheetName == "" {
		sheetName = "Gists"
	}

	return &SheetsTracker{
		service:       srv,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
		log:           log.WithComponent("sheets-tracker"),
	}, nil
}

// InitializeSheet creates the sheet and headers if they don't exist
func (t *SheetsTracker) InitializeSheet(ctx context.Context) error {
	if err := t.ensureSheetExists(ctx); err != nil {
		return err
	}

	readRange := fmt.Sprintf("%s!A1:J1", t.sheetName)
	resp, err := t.service.Spreadsheets.Values.Get(t.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read sheet: %w", err)
	}

	if len(resp.Values) == 0 {
		t.log.Info().Msg("Initializing sheet with headers")
		return t.writeHeaders(ctx)
	}

	t.log.Debug().Msg("Sheet already has headers")
	return nil
}

func (t *SheetsTracker) ensureSheetExists(ctx context.Context) error {
	spreadsheet, err := t.service.Spreadsheets.Get(t.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == t.sheetName {
			return nil
		}
	}

	t.log.Info().Str("sheet", t.sheetName).Msg("Creating new sheet")
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{
						Title: t.sheetName,
					},
				},
			},
		},
	}

	if _, err := t.service.Spreadsheets.BatchUpdate(t.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	return nil
}

func (t *SheetsTracker) writeHeaders(ctx context.Context) error {
	headerRow := make([]interface{}, 0, len(SheetColumns))
	for _, col := range SheetColumns {
		headerRow = append(headerRow, col)
	}

	writeRange := fmt.Sprintf("%s!A1", t.sheetName)
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{headerRow},
	}

	_, err := t.service.Spreadsheets.Values.Update(t.spreadsheetID, writeRange, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	return nil
}

// GistPublished appends a tracking row for gist
func (t *SheetsTracker) GistPublished(ctx context.Context, gist *models.Gist) error {
	row := NewTrackedGist(gist).row()

	appendRange := fmt.Sprintf("%s!A:J", t.sheetName)
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{row},
	}

	_, err := t.service.Spreadsheets.Values.Append(t.spreadsheetID, appendRange, valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}

	t.log.Debug().Str("gist_id", gist.ID).Msg("Tracked published gist")
	return nil
}

// ListTracked retrieves all tracked gists from the sheet
func (t *SheetsTracker) ListTracked(ctx context.Context) ([]*TrackedGist, error) {
	readRange := fmt.Sprintf("%s!A2:J", t.sheetName) // Skip header
	resp, err := t.service.Spreadsheets.Values.Get(t.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read tracked gists: %w", err)
	}

	var tracked []*TrackedGist
	for _, row := range resp.Values {
		if g := parseRow(row); g != nil {
			tracked = append(tracked, g)
		}
	}
	return tracked, nil
}

// NewTrackedGist flattens a gist into its sheet representation
func NewTrackedGist(gist *models.Gist) *TrackedGist {
	preview := []rune(gist.Narration)
	narration := gist.Narration
	if len(preview) > previewChars {
		narration = string(preview[:previewChars]) + "..."
	}

	imageSource := ""
	if v, ok := gist.Meta["image_source"].(string); ok {
		imageSource = v
	}

	return &TrackedGist{
		GistID:           gist.ID,
		TrendID:          deref(gist.TrendID),
		Topic:            gist.Topic,
		Category:         gist.TopicCategory,
		Headline:         gist.Headline,
		NarrationPreview: narration,
		ImageURL:         deref(gist.ImageURL),
		ImageSource:      imageSource,
		SourceURL:        deref(gist.SourceURL),
		PublishedAt:      gist.PublishedAt,
	}
}

func (g *TrackedGist) row() []interface{} {
	return []interface{}{
		g.GistID,
		g.TrendID,
		g.Topic,
		g.Category,
		g.Headline,
		g.NarrationPreview,
		g.ImageURL,
		g.ImageSource,
		g.SourceURL,
		formatTime(g.PublishedAt),
	}
}

// parseRow parses a sheet row into a TrackedGist
func parseRow(row []interface{}) *TrackedGist {
	if len(row) == 0 {
		return nil
	}

	getString := func(i int) string {
		if i < len(row) {
			return fmt.Sprintf("%v", row[i])
		}
		return ""
	}

	published, _ := time.Parse(time.RFC3339, getString(9))

	return &TrackedGist{
		GistID:           getString(0),
		TrendID:          getString(1),
		Topic:            getString(2),
		Category:         getString(3),
		Headline:         getString(4),
		NarrationPreview: getString(5),
		ImageURL:         getString(6),
		ImageSource:      getString(7),
		SourceURL:        getString(8),
		PublishedAt:      published,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
