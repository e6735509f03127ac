// Package notion stores expense records as pages of a Notion database with a
// title property (category), a number property (amount) and a date property.
package notion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"

	"spesebot/internal/core"
	ports "spesebot/internal/records"
)

const (
	DefaultBaseURL = "https://api.notion.com"
	pageSize       = 100
)

// Config holds the integration token, the database and its property names.
type Config struct {
	Token      string
	DatabaseID string
	// BaseURL points the client at another API host, such as a proxy.
	BaseURL string

	CategoryProperty string
	AmountProperty   string
	DateProperty     string

	HTTPClient *http.Client
}

type Client struct {
	api        *notionapi.Client
	databaseID notionapi.DatabaseID
	catProp    string
	amtProp    string
	dateProp   string
}

var _ ports.Store = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("missing NOTION_TOKEN")
	}
	if strings.TrimSpace(cfg.DatabaseID) == "" {
		return nil, errors.New("missing NOTION_DATABASE_ID")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = newHTTPClientWithPooling()
	}
	if base := strings.TrimRight(cfg.BaseURL, "/"); base != "" && base != DefaultBaseURL {
		u, err := url.Parse(base)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid NOTION_API_URL %q", cfg.BaseURL)
		}
		hc = withBaseURL(hc, u)
	}

	c := &Client{
		api:        notionapi.NewClient(notionapi.Token(cfg.Token), notionapi.WithHTTPClient(hc)),
		databaseID: notionapi.DatabaseID(cfg.DatabaseID),
		catProp:    cfg.CategoryProperty,
		amtProp:    cfg.AmountProperty,
		dateProp:   cfg.DateProperty,
	}
	if c.catProp == "" {
		c.catProp = "Категория"
	}
	if c.amtProp == "" {
		c.amtProp = "Сумма"
	}
	if c.dateProp == "" {
		c.dateProp = "Дата"
	}
	return c, nil
}

// newHTTPClientWithPooling creates an HTTP client with connection pooling
// and per-phase timeouts for the Notion API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// Create adds a page to the database and returns the page id.
func (c *Client) Create(ctx context.Context, category string, amount decimal.Decimal, date core.Date) (string, error) {
	rec := core.ExpenseRecord{Category: category, Amount: amount, Date: date}
	if err := rec.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	page, err := c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{Type: notionapi.ParentTypeDatabaseID, DatabaseID: c.databaseID},
		Properties: notionapi.Properties{
			c.catProp: notionapi.TitleProperty{
				Title: []notionapi.RichText{{Text: &notionapi.Text{Content: category}}},
			},
			c.amtProp:  numberValue(amount),
			c.dateProp: dateValue(date),
		},
	})
	if err != nil {
		return "", fmt.Errorf("create page: %w", err)
	}
	if page == nil || page.ID == "" {
		return "", fmt.Errorf("create page: %w: response without id", core.ErrMalformedRecord)
	}
	return string(page.ID), nil
}

// QueryRange pages through the database query, sorted by date ascending.
// Pages with an empty amount are drafts and are filtered out by the query.
func (c *Client) QueryRange(ctx context.Context, r core.DateRange) ([]core.ExpenseRecord, error) {
	start, end := notionapi.Date(r.Start.Time), notionapi.Date(r.End.Time)
	req := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.AndCompoundFilter{
			notionapi.PropertyFilter{Property: c.dateProp, Date: &notionapi.DateFilterCondition{OnOrAfter: &start}},
			notionapi.PropertyFilter{Property: c.dateProp, Date: &notionapi.DateFilterCondition{OnOrBefore: &end}},
			c.amountPresent(),
		},
		Sorts: []notionapi.SortObject{
			{Property: c.dateProp, Direction: notionapi.SortOrderASC},
			{Timestamp: notionapi.TimestampCreated, Direction: notionapi.SortOrderASC},
		},
		PageSize: pageSize,
	}
	out := make([]core.ExpenseRecord, 0)
	for {
		resp, err := c.api.Database.Query(ctx, c.databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("query database: %w", err)
		}
		for _, p := range resp.Results {
			rec, err := c.decodePage(p)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		req.StartCursor = resp.NextCursor
	}
	return out, nil
}

// QueryLatestByCategory asks for the newest page whose title equals category.
func (c *Client) QueryLatestByCategory(ctx context.Context, category string) (core.ExpenseRecord, error) {
	resp, err := c.api.Database.Query(ctx, c.databaseID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.AndCompoundFilter{
			notionapi.PropertyFilter{Property: c.catProp, RichText: &notionapi.TextFilterCondition{Equals: category}},
			c.amountPresent(),
		},
		Sorts: []notionapi.SortObject{
			{Property: c.dateProp, Direction: notionapi.SortOrderDESC},
			{Timestamp: notionapi.TimestampCreated, Direction: notionapi.SortOrderDESC},
		},
		PageSize: 1,
	})
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("query latest: %w", err)
	}
	if len(resp.Results) == 0 {
		return core.ExpenseRecord{}, core.ErrRecordNotFound
	}
	rec, err := c.decodePage(resp.Results[0])
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	if rec.Category != category {
		return core.ExpenseRecord{}, core.ErrRecordNotFound
	}
	return rec, nil
}

// Update patches amount and date of a page. Notion has no conditional
// update, so u.Version is ignored.
func (c *Client) Update(ctx context.Context, u core.RecordUpdate) error {
	if err := core.ValidateAmount(u.Amount); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	_, err := c.api.Page.Update(ctx, notionapi.PageID(u.ID), &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			c.amtProp:  numberValue(u.Amount),
			c.dateProp: dateValue(u.Date),
		},
	})
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return core.ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("update page: %w", err)
	}
	return nil
}

// amountPresent keeps pages whose amount cell is filled. The client reads an
// empty number as zero, so empty cells must never reach decodePage.
func (c *Client) amountPresent() notionapi.PropertyFilter {
	return notionapi.PropertyFilter{Property: c.amtProp, Number: &notionapi.NumberFilterCondition{IsNotEmpty: true}}
}

func numberValue(d decimal.Decimal) notionapi.NumberProperty {
	return notionapi.NumberProperty{Number: d.InexactFloat64()}
}

func dateValue(d core.Date) notionapi.DateProperty {
	start := notionapi.Date(d.Time)
	return notionapi.DateProperty{Date: &notionapi.DateObject{Start: &start}}
}

// withBaseURL sends every request of hc to base instead of the public API host.
func withBaseURL(hc *http.Client, base *url.URL) *http.Client {
	next := hc.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	out := *hc
	out.Transport = baseURLTransport{base: base, next: next}
	return &out
}

type baseURLTransport struct {
	base *url.URL
	next http.RoundTripper
}

func (t baseURLTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.URL.Scheme = t.base.Scheme
	r.URL.Host = t.base.Host
	r.URL.Path = strings.TrimRight(t.base.Path, "/") + r.URL.Path
	r.Host = t.base.Host
	return t.next.RoundTrip(r)
}
