// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating request data:
// JSON bodies, month selectors and list filters.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dompet/internal/core"
	"dompet/internal/store"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

var errMalformedBody = errors.New("malformed JSON body")

// fieldError reports a request value that could not be parsed. It is answered
// with 422 like a service validation failure.
type fieldError struct {
	Field string
	Err   error
}

func (e *fieldError) Error() string { return e.Field + ": " + e.Err.Error() }

func (e *fieldError) Unwrap() error { return e.Err }

func invalidField(field string, err error) error {
	return &fieldError{Field: field, Err: err}
}

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, using now
// for whichever is missing. Non-numeric values are rejected; range checks are
// left to the services.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, invalidField("year", core.ErrInvalidYear)
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, invalidField("month", core.ErrInvalidMonth)
		}
		params.Month = m
	}

	return params, nil
}

// ParseListFilter reads from, to and category from a listing query. Both dates
// are inclusive on the wire; To is turned into the exclusive bound the store
// expects.
func ParseListFilter(query url.Values) (store.ListFilter, error) {
	var f store.ListFilter

	if v := strings.TrimSpace(query.Get("from")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return store.ListFilter{}, invalidField("from", err)
		}
		f.From = &d
	}
	if v := strings.TrimSpace(query.Get("to")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return store.ListFilter{}, invalidField("to", err)
		}
		next := core.Date{Time: d.AddDate(0, 0, 1)}
		f.To = &next
	}
	if f.From != nil && f.To != nil && !f.From.Before(f.To.Time) {
		return store.ListFilter{}, invalidField("to", fmt.Errorf("must not be before from"))
	}
	f.CategoryID = sanitizeInput(query.Get("category"))

	if v := strings.TrimSpace(query.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return store.ListFilter{}, invalidField("limit", fmt.Errorf("must be a non-negative integer"))
		}
		f.Limit = n
	}
	return f, nil
}

// parseCount reads an optional positive integer query parameter; missing
// yields 0.
func parseCount(query url.Values, key string) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, invalidField(key, fmt.Errorf("must be a positive integer"))
	}
	return n, nil
}

// decodeJSON reads a single JSON object into v, rejecting unknown fields and
// trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", errMalformedBody)
	}
	return nil
}

// parseUserAmount parses a positive decimal amount typed by the user.
func parseUserAmount(field, s string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, invalidField(field, err)
	}
	return core.Money{Cents: cents}, nil
}

// parseOptionalAmount accepts zero and treats an empty value as zero.
func parseOptionalAmount(field, s string) (core.Money, error) {
	if strings.TrimSpace(s) == "" {
		return core.Money{}, nil
	}
	m, err := core.ParseAmount(s)
	if err != nil {
		return core.Money{}, invalidField(field, err)
	}
	return m, nil
}

func parseRequiredDate(field, s string) (core.Date, error) {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, invalidField(field, err)
	}
	return d, nil
}

func parseOptionalDate(field, s string) (*core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := parseRequiredDate(field, s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
