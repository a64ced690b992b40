package sheets

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Options configures a read-only Sheets client.
type Options struct {
	APIKey        string
	SpreadsheetID string
	// Endpoint overrides the API base URL. Empty means the public endpoint.
	Endpoint string
	// ReadsPerMinute caps outgoing reads. Zero disables limiting.
	ReadsPerMinute int
	Burst          int
}

type Client struct {
	service       *sheets.Service
	spreadsheetID string
	limiter       *rate.Limiter
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("sheets API key is required")
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	service, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.ReadsPerMinute > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(opts.ReadsPerMinute)/60.0), burst)
	}

	return &Client{
		service:       service,
		spreadsheetID: opts.SpreadsheetID,
		limiter:       limiter,
	}, nil
}

func (c *Client) ReadSheet(ctx context.Context, spreadsheetID, range_ string) ([][]interface{}, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for read quota: %w", err)
	}

	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, range_).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}

	return resp.Values, nil
}

// FetchRows reads range_ from the configured spreadsheet and returns every
// row as plain strings.
func (c *Client) FetchRows(ctx context.Context, range_ string) ([][]string, error) {
	values, err := c.ReadSheet(ctx, c.spreadsheetID, range_)
	if err != nil {
		return nil, err
	}

	rows := ToRows(values)
	log.Debug().
		Str("range", range_).
		Int("rows", len(rows)).
		Msg("Read sheet rows")
	return rows, nil
}
