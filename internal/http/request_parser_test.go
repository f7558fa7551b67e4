package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"dompet/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		query   string
		want    MonthParams
		wantErr bool
	}{
		{"defaults", "", MonthParams{Year: 2025, Month: 7}, false},
		{"explicit", "year=2024&month=2", MonthParams{Year: 2024, Month: 2}, false},
		{"month only", "month=12", MonthParams{Year: 2025, Month: 12}, false},
		{"out of range passes through", "month=13", MonthParams{Year: 2025, Month: 13}, false},
		{"bad month", "month=feb", MonthParams{}, true},
		{"bad year", "year=20x5", MonthParams{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := ParseMonthParams(q, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseListFilter(t *testing.T) {
	q, _ := url.ParseQuery("from=2025-01-01&to=2025-01-31&category=%20food%20&limit=5")
	f, err := ParseListFilter(q)
	if err != nil {
		t.Fatalf("ParseListFilter: %v", err)
	}
	if f.From == nil || f.From.String() != "2025-01-01" {
		t.Fatalf("From = %v", f.From)
	}
	// The inclusive end date becomes an exclusive bound
	if f.To == nil || f.To.String() != "2025-02-01" {
		t.Fatalf("To = %v", f.To)
	}
	if f.CategoryID != "food" || f.Limit != 5 {
		t.Fatalf("unexpected filter %+v", f)
	}

	for _, bad := range []string{"from=yesterday", "to=2025-13-01", "from=2025-02-01&to=2025-01-01", "limit=-1"} {
		q, _ := url.ParseQuery(bad)
		if _, err := ParseListFilter(q); err == nil {
			t.Errorf("ParseListFilter(%q) should fail", bad)
		}
	}
}

func TestParseCount(t *testing.T) {
	q, _ := url.ParseQuery("months=6&zero=0&word=six")
	if n, err := parseCount(q, "months"); err != nil || n != 6 {
		t.Fatalf("months = %d, %v", n, err)
	}
	if n, err := parseCount(q, "missing"); err != nil || n != 0 {
		t.Fatalf("missing = %d, %v", n, err)
	}
	if _, err := parseCount(q, "zero"); err == nil {
		t.Fatal("zero should be rejected")
	}
	if _, err := parseCount(q, "word"); err == nil {
		t.Fatal("non-numeric should be rejected")
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"Food","kind":"expense"}`, false},
		{"unknown field", `{"name":"Food","nope":true}`, true},
		{"trailing data", `{"name":"Food"}{"name":"Rent"}`, true},
		{"empty", ``, true},
		{"not an object", `[1,2]`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var req categoryRequest
			err := decodeJSON(httptest.NewRecorder(), r, &req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errMalformedBody) {
				t.Fatalf("error should wrap errMalformedBody: %v", err)
			}
		})
	}
}

func TestAmountParsing(t *testing.T) {
	if m, err := parseUserAmount("amount", "12,345"); err != nil || m.Cents != 1235 {
		t.Fatalf("parseUserAmount = %v, %v", m, err)
	}
	_, err := parseUserAmount("amount", "0")
	var fe *fieldError
	if !errors.As(err, &fe) || fe.Field != "amount" || !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("zero amount error = %v", err)
	}
	if m, err := parseOptionalAmount("current", ""); err != nil || m.Cents != 0 {
		t.Fatalf("empty optional = %v, %v", m, err)
	}
	if m, err := parseOptionalAmount("current", "0"); err != nil || m.Cents != 0 {
		t.Fatalf("zero optional = %v, %v", m, err)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  caf\x00é\tbar\x07 "); got != "café\tbar" {
		t.Fatalf("sanitizeInput = %q", got)
	}
}
