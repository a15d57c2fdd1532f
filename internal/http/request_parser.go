// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Bodies may be JSON objects or form-encoded (htmx); both are read through
// RequestBodyParser so handlers see one set of field names.

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

	"boq/internal/core"
	"boq/internal/services"
)

const maxBodyBytes = 1 << 20

var (
	errMalformedBody = errors.New("malformed request body")
	errBodyTooLarge  = errors.New("request body too large")
	errBadIndex      = errors.New("index must be a whole number")
)

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errBodyTooLarge
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || trimmed[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
			return err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// number reads a required numeric field; missing or malformed input is
// reported against the field with notValid.
func (p *RequestBodyParser) number(key string, notValid error) (float64, error) {
	v, err := core.ParseNumber(p.Get(key))
	if err != nil {
		return 0, &core.ValidationError{Field: key, Err: notValid}
	}
	return v, nil
}

// optionalNumber reads a numeric field that may be left blank.
func (p *RequestBodyParser) optionalNumber(key string) (*float64, error) {
	v, err := core.ParseOptionalNumber(p.Get(key))
	if err != nil {
		return nil, &core.ValidationError{Field: key, Err: core.ErrNotANumber}
	}
	return v, nil
}

// ParseAddItem reads an add intent. A non-empty custom_category wins over
// the category picked from the list.
func ParseAddItem(p *RequestBodyParser) (services.AddItemRequest, error) {
	if err := p.Parse(); err != nil {
		return services.AddItemRequest{}, fmt.Errorf("%w: %v", errMalformedBody, err)
	}

	category := p.Get("custom_category")
	if category == "" {
		category = p.Get("category")
	}

	mode, err := core.ParseCalcMode(p.Get("calc_type"))
	if err != nil {
		return services.AddItemRequest{}, err
	}

	price, err := p.number("unit_price", core.ErrInvalidUnitPrice)
	if err != nil {
		return services.AddItemRequest{}, err
	}

	var dims core.Dimensions
	for _, f := range []struct {
		key string
		dst **float64
	}{
		{"quantity", &dims.Quantity},
		{"width", &dims.Width},
		{"length", &dims.Length},
		{"height", &dims.Height},
	} {
		if *f.dst, err = p.optionalNumber(f.key); err != nil {
			return services.AddItemRequest{}, err
		}
	}

	return services.AddItemRequest{
		Category:    category,
		Description: p.Get("description"),
		Unit:        p.Get("unit"),
		UnitPrice:   price,
		Mode:        mode,
		Dimensions:  dims,
	}, nil
}

// ParseItemEdit reads an edit intent. The quantity is entered directly.
func ParseItemEdit(p *RequestBodyParser) (core.ItemEdit, error) {
	if err := p.Parse(); err != nil {
		return core.ItemEdit{}, fmt.Errorf("%w: %v", errMalformedBody, err)
	}

	price, err := p.number("unit_price", core.ErrInvalidUnitPrice)
	if err != nil {
		return core.ItemEdit{}, err
	}
	qty, err := p.number("quantity", core.ErrInvalidQuantity)
	if err != nil {
		return core.ItemEdit{}, err
	}

	return core.ItemEdit{
		Description: p.Get("description"),
		Unit:        p.Get("unit"),
		UnitPrice:   price,
		Quantity:    qty,
	}, nil
}

// ParseMoveIndex reads the 0-based target position of a move.
func ParseMoveIndex(p *RequestBodyParser) (int, error) {
	if err := p.Parse(); err != nil {
		return 0, fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	idx, err := strconv.Atoi(p.Get("index"))
	if err != nil {
		return 0, &core.ValidationError{Field: "index", Err: errBadIndex}
	}
	return idx, nil
}
