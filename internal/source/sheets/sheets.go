// Package sheets reads transactions from a Google Sheet. The sheet is a
// read-only source: mutations fail with source.ErrReadOnly.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/aggregate"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/filter"
	"fintrack/internal/source"
)

// DefaultSheetName is used when Config.SheetName is empty.
const DefaultSheetName = "Transactions"

// Ensure interface conformance
var (
	_ source.Source      = (*Client)(nil)
	_ source.Invalidator = (*Client)(nil)
)

// Config selects the spreadsheet and the credentials used to read it.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountFile string
	ServiceAccountJSON string
	// CacheTTL keeps parsed rows for this long. Zero disables caching.
	CacheTTL time.Duration
}

const rowsKey = "rows"

// fetchTimeout bounds a shared sheet read.
const fetchTimeout = 30 * time.Second

type rowFetcher func(ctx context.Context) ([][]interface{}, error)

// Client lists transactions from one sheet whose first row is a header.
// Concurrent reads share one fetch, and parsed rows are cached for
// Config.CacheTTL.
type Client struct {
	fetch  rowFetcher
	logger *slog.Logger
	rows   *cache.LRU[[]core.Record]
	group  singleflight.Group
}

func newClient(fetch rowFetcher, logger *slog.Logger, ttl time.Duration) *Client {
	c := &Client{fetch: fetch, logger: logger}
	if ttl > 0 {
		c.rows = cache.NewLRU[[]core.Record](1, ttl)
	}
	return c
}

// New creates a Sheets client using service account credentials.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = DefaultSheetName
	}
	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	rng := fmt.Sprintf("%s!A:F", sheet)
	fetch := func(ctx context.Context) ([][]interface{}, error) {
		resp, err := svc.Spreadsheets.Values.Get(cfg.SpreadsheetID, rng).
			ValueRenderOption("UNFORMATTED_VALUE").
			DateTimeRenderOption("FORMATTED_STRING").
			Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", rng, err)
		}
		return resp.Values, nil
	}
	return newClient(fetch, logger, cfg.CacheTTL), nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Inline JSON wins over the file; GOOGLE_APPLICATION_CREDENTIALS is the last resort.
func newSheetsService(ctx context.Context, cfg Config, logger *slog.Logger) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	logger.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsReadonlyScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ListTransactions reads every row and keeps those passing f.
func (c *Client) ListTransactions(ctx context.Context, f filter.Filter) ([]core.Record, error) {
	recs, err := c.records(ctx)
	if err != nil {
		return nil, err
	}
	return f.Apply(recs), nil
}

// records returns every parsed row. The slice is shared and must not be
// modified. The fetch is shared by concurrent callers and outlives any one
// of them; each caller stops waiting when its own ctx is done.
func (c *Client) records(ctx context.Context) ([]core.Record, error) {
	if c.rows != nil {
		if recs, ok := c.rows.Get(rowsKey); ok {
			return recs, nil
		}
	}
	ch := c.group.DoChan(rowsKey, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		values, err := c.fetch(fctx)
		if err != nil {
			return nil, err
		}
		recs, skipped, err := parseRows(values)
		if err != nil {
			return nil, err
		}
		if skipped > 0 {
			c.logger.WarnContext(fctx, "Skipped unreadable sheet rows", "count", skipped)
		}
		if c.rows != nil {
			c.rows.Set(rowsKey, recs)
		}
		return recs, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]core.Record), nil
	}
}

// Invalidate drops cached rows so the next read fetches the sheet.
func (c *Client) Invalidate() {
	if c.rows != nil {
		c.rows.Purge()
	}
}

// Summary is computed locally from the filtered rows.
func (c *Client) Summary(ctx context.Context, f filter.Filter) (core.Summary, error) {
	recs, err := c.ListTransactions(ctx, f)
	if err != nil {
		return core.Summary{}, err
	}
	return aggregate.Summarize(aggregate.Ingest(recs).Transactions), nil
}

func (c *Client) CreateTransaction(context.Context, core.Submission) (core.Result, error) {
	return core.Result{}, source.ErrReadOnly
}

func (c *Client) UpdateTransaction(context.Context, core.ID, core.Submission) (core.Result, error) {
	return core.Result{}, source.ErrReadOnly
}

func (c *Client) DeleteTransaction(context.Context, core.ID) (core.Result, error) {
	return core.Result{}, source.ErrReadOnly
}
