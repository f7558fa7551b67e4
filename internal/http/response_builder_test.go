package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dompet/internal/core"
	applog "dompet/internal/log"
	"dompet/internal/store"
)

func TestJSONResponseBuilder(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/goals/1").
		Body(map[string]string{"id": "1"}).
		Write(rr)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Header().Get("Location") != "/api/goals/1" {
		t.Fatal("custom header missing")
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		t.Fatalf("Content-Type = %q", rr.Header().Get("Content-Type"))
	}
	if strings.TrimSpace(rr.Body.String()) != `{"id":"1"}` {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestJSONResponseBuilderNoContent(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Body("ignored").Write(rr)
	if rr.Code != http.StatusNoContent || rr.Body.Len() != 0 {
		t.Fatalf("status = %d, body = %q", rr.Code, rr.Body.String())
	}
}

func TestWriteErrorMapping(t *testing.T) {
	ctx := applog.NewContext(context.Background(), applog.Discard())

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"malformed body", fmt.Errorf("%w: eof", errMalformedBody), http.StatusBadRequest},
		{"field error", invalidField("amount", core.ErrInvalidAmount), http.StatusUnprocessableEntity},
		{"not found", fmt.Errorf("get goal: %w", store.ErrNotFound), http.StatusNotFound},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(ctx, rr, applog.OpRead, tt.err)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}

	rr := httptest.NewRecorder()
	writeError(ctx, rr, applog.OpRead, errors.New("disk on fire"))
	if strings.Contains(rr.Body.String(), "disk") {
		t.Fatalf("internal cause leaked: %s", rr.Body.String())
	}
}
