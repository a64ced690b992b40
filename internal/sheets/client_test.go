package sheets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), Options{
		APIKey:        "test-key",
		SpreadsheetID: "sheet-123",
		Endpoint:      srv.URL + "/",
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

func TestFetchRows(t *testing.T) {
	var gotPath, gotKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"range":"Core markets!A1:E3","majorDimension":"ROWS","values":[
			["Classification","Geography","Name","Price","Change"],
			["INDEX","US","S&P 500","4,500.25","1.2%"],
			["CRYPTO",null,"BTC",65000.5]
		]}`))
	})

	rows, err := client.FetchRows(context.Background(), "Core markets!A:E")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !strings.HasPrefix(gotPath, "/v4/spreadsheets/sheet-123/values/") {
		t.Errorf("Unexpected request path %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("Expected API key 'test-key', got '%s'", gotKey)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	if rows[1][3] != "4,500.25" {
		t.Errorf("Expected '4,500.25', got '%s'", rows[1][3])
	}
	if rows[2][1] != "" {
		t.Errorf("Expected null cell to become empty string, got '%s'", rows[2][1])
	}
	if rows[2][3] != "65000.5" {
		t.Errorf("Expected numeric cell '65000.5', got '%s'", rows[2][3])
	}
	if len(rows[2]) != 4 {
		t.Errorf("Expected short row to keep 4 cells, got %d", len(rows[2]))
	}
}

func TestFetchRowsServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"API key not valid"}}`, http.StatusForbidden)
	})

	rows, err := client.FetchRows(context.Background(), "BBC")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if rows != nil {
		t.Errorf("Expected nil rows, got %v", rows)
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(context.Background(), Options{SpreadsheetID: "x"}); err == nil {
		t.Error("Expected error for missing API key, got nil")
	}
}

func TestReadsPerMinuteLimiter(t *testing.T) {
	client, err := NewClient(context.Background(), Options{
		APIKey:         "k",
		ReadsPerMinute: 60,
		Burst:          4,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	if client.limiter.Burst() != 4 {
		t.Errorf("Expected burst 4, got %d", client.limiter.Burst())
	}
	if float64(client.limiter.Limit()) != 1.0 {
		t.Errorf("Expected 1 read/s, got %v", client.limiter.Limit())
	}
}
