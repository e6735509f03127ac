package notion

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"

	"spesebot/internal/core"
)

type fakeNotion struct {
	mu       sync.Mutex
	pages    []string // query result pages, one JSON object per batch
	requests []recordedRequest
	status   int
	response string
}

type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]any
	Auth   string
	Ver    string
}

func (f *fakeNotion) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method, Path: r.URL.Path, Body: body,
		Auth: r.Header.Get("Authorization"), Ver: r.Header.Get("Notion-Version"),
	})
	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.response))
		return
	}
	if strings.HasSuffix(r.URL.Path, "/query") {
		if len(f.pages) == 0 {
			_, _ = w.Write([]byte(`{"results":[],"has_more":false,"next_cursor":null}`))
			return
		}
		next := f.pages[0]
		f.pages = f.pages[1:]
		_, _ = w.Write([]byte(next))
		return
	}
	_, _ = w.Write([]byte(`{"object":"page","id":"page-1"}`))
}

func newTestClient(t *testing.T, fake *fakeNotion) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c, err := New(Config{Token: "secret", DatabaseID: "db1", BaseURL: srv.URL, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func pageJSON(id, category, amount, date string) string {
	return `{"object":"page","id":"` + id + `","properties":{` +
		`"Категория":{"type":"title","title":[{"plain_text":"` + category + `"}]},` +
		`"Сумма":{"type":"number","number":` + amount + `},` +
		`"Дата":{"type":"date","date":{"start":"` + date + `","end":null}}}}`
}

func TestNew_RequiresTokenAndDatabase(t *testing.T) {
	if _, err := New(Config{DatabaseID: "db"}); err == nil || !strings.Contains(err.Error(), "NOTION_TOKEN") {
		t.Fatalf("expected token error, got %v", err)
	}
	if _, err := New(Config{Token: "t"}); err == nil || !strings.Contains(err.Error(), "NOTION_DATABASE_ID") {
		t.Fatalf("expected database error, got %v", err)
	}
	if _, err := New(Config{Token: "t", DatabaseID: "db", BaseURL: "not a url"}); err == nil {
		t.Fatal("expected base url error")
	}
}

func TestCreate_SendsPageWithProperties(t *testing.T) {
	fake := &fakeNotion{}
	c := newTestClient(t, fake)

	id, err := c.Create(context.Background(), "еда", decimal.RequireFromString("6400.50"), core.NewDate(2026, 10, 15))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != "page-1" {
		t.Fatalf("id: %s", id)
	}
	req := fake.requests[0]
	if req.Method != http.MethodPost || req.Path != "/v1/pages" {
		t.Fatalf("unexpected request %s %s", req.Method, req.Path)
	}
	if req.Auth != "Bearer secret" || req.Ver == "" {
		t.Fatalf("headers: auth=%q version=%q", req.Auth, req.Ver)
	}
	props := req.Body["properties"].(map[string]any)
	if amt := props["Сумма"].(map[string]any)["number"].(float64); amt != 6400.5 {
		t.Fatalf("amount: %v", amt)
	}
	if d, _ := props["Дата"].(map[string]any)["date"].(map[string]any)["start"].(string); !strings.HasPrefix(d, "2026-10-15") {
		t.Fatalf("date: %v", d)
	}
	title := props["Категория"].(map[string]any)["title"].([]any)[0].(map[string]any)
	if title["text"].(map[string]any)["content"] != "еда" {
		t.Fatalf("title: %v", title)
	}
	if body := req.Body["parent"].(map[string]any); body["database_id"] != "db1" {
		t.Fatalf("parent: %v", body)
	}
}

func TestQueryRange_FollowsCursor(t *testing.T) {
	fake := &fakeNotion{pages: []string{
		`{"results":[` + pageJSON("p1", "еда", "100", "2026-10-01") + `],"has_more":true,"next_cursor":"c2"}`,
		`{"results":[` + pageJSON("p2", "кофе", "4.5", "2026-10-02") + `],"has_more":false,"next_cursor":null}`,
	}}
	c := newTestClient(t, fake)

	got, err := c.QueryRange(context.Background(), core.DateRange{Start: core.NewDate(2026, 10, 1), End: core.NewDate(2026, 10, 7)})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 || got[0].ID != "p1" || got[1].Category != "кофе" {
		t.Fatalf("unexpected records: %+v", got)
	}
	if !got[1].Amount.Equal(decimal.RequireFromString("4.5")) {
		t.Fatalf("amount: %s", got[1].Amount)
	}
	if len(fake.requests) != 2 || fake.requests[1].Body["start_cursor"] != "c2" {
		t.Fatalf("second request must carry the cursor: %+v", fake.requests)
	}
	filter := fake.requests[0].Body["filter"].(map[string]any)["and"].([]any)
	if len(filter) != 3 {
		t.Fatalf("filter: %+v", filter)
	}
	if !hasEmptyAmountFilter(filter) {
		t.Fatalf("pages with an empty amount must be filtered out: %+v", filter)
	}
}

func hasEmptyAmountFilter(filter []any) bool {
	for _, f := range filter {
		m := f.(map[string]any)
		if m["property"] != "Сумма" {
			continue
		}
		if num, ok := m["number"].(map[string]any); ok && num["is_not_empty"] == true {
			return true
		}
	}
	return false
}

func TestQueryRange_MalformedPage(t *testing.T) {
	title := `"Категория":{"type":"title","title":[{"plain_text":"еда"}]}`
	amount := `"Сумма":{"type":"number","number":1}`
	date := `"Дата":{"type":"date","date":{"start":"2026-10-01","end":null}}`
	cases := map[string]string{
		"empty title":     pageJSON("p1", "", "1", "2026-10-01"),
		"negative amount": pageJSON("p1", "еда", "-5", "2026-10-01"),
		"no date prop":    `{"object":"page","id":"p1","properties":{` + title + `,` + amount + `}}`,
		"null date":       `{"object":"page","id":"p1","properties":{` + title + `,` + amount + `,"Дата":{"type":"date","date":null}}}`,
		"no amount prop":  `{"object":"page","id":"p1","properties":{` + title + `,` + date + `}}`,
		"no title prop":   `{"object":"page","id":"p1","properties":{` + amount + `,` + date + `}}`,
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			fake := &fakeNotion{pages: []string{`{"results":[` + p + `],"has_more":false}`}}
			c := newTestClient(t, fake)
			_, err := c.QueryRange(context.Background(), core.DateRange{Start: core.NewDate(2026, 10, 1), End: core.NewDate(2026, 10, 1)})
			if !errors.Is(err, core.ErrMalformedRecord) {
				t.Fatalf("expected ErrMalformedRecord, got %v", err)
			}
		})
	}
}

func TestQueryLatestByCategory(t *testing.T) {
	fake := &fakeNotion{pages: []string{
		`{"results":[` + pageJSON("p9", "еда", "70", "2026-10-15") + `],"has_more":true,"next_cursor":"x"}`,
	}}
	c := newTestClient(t, fake)

	rec, err := c.QueryLatestByCategory(context.Background(), "еда")
	if err != nil || rec.ID != "p9" {
		t.Fatalf("latest: %+v err=%v", rec, err)
	}
	if fake.requests[0].Body["page_size"].(float64) != 1 {
		t.Fatalf("latest must ask for a single page")
	}
	if filter := fake.requests[0].Body["filter"].(map[string]any)["and"].([]any); !hasEmptyAmountFilter(filter) {
		t.Fatalf("latest must skip pages with an empty amount: %+v", filter)
	}

	if _, err := c.QueryLatestByCategory(context.Background(), "такси"); !errors.Is(err, core.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestUpdate_PatchesPage(t *testing.T) {
	fake := &fakeNotion{}
	c := newTestClient(t, fake)

	err := c.Update(context.Background(), core.RecordUpdate{ID: "p1", Amount: decimal.NewFromInt(300), Date: core.NewDate(2026, 10, 15)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if fake.requests[0].Method != http.MethodPatch || fake.requests[0].Path != "/v1/pages/p1" {
		t.Fatalf("unexpected request: %+v", fake.requests[0])
	}
}

func TestUpdate_MissingPage(t *testing.T) {
	fake := &fakeNotion{status: http.StatusNotFound, response: `{"object":"error","status":404,"code":"object_not_found","message":"gone"}`}
	c := newTestClient(t, fake)

	err := c.Update(context.Background(), core.RecordUpdate{ID: "p1", Amount: decimal.NewFromInt(1), Date: core.NewDate(2026, 10, 15)})
	if !errors.Is(err, core.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestAPIErrorIsReturned(t *testing.T) {
	fake := &fakeNotion{status: http.StatusBadRequest, response: `{"object":"error","status":400,"code":"validation_error","message":"bad filter"}`}
	c := newTestClient(t, fake)

	_, err := c.QueryRange(context.Background(), core.DateRange{Start: core.NewDate(2026, 10, 1), End: core.NewDate(2026, 10, 1)})
	var apiErr *notionapi.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected notionapi.Error, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || string(apiErr.Code) != "validation_error" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
	if errors.Is(err, core.ErrMalformedRecord) {
		t.Fatal("an API error is not a malformed record")
	}
}

func TestBaseURLRewritesHostAndPrefix(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"page","id":"page-1"}`))
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{Token: "t", DatabaseID: "db", BaseURL: srv.URL + "/proxy/", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := c.Create(context.Background(), "еда", decimal.NewFromInt(1), core.NewDate(2026, 10, 15)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if gotPath != "/proxy/v1/pages" {
		t.Fatalf("path: %s", gotPath)
	}
}
