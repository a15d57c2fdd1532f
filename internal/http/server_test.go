package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"boq/internal/codec"
	"boq/internal/core"
	"boq/internal/log"
	"boq/internal/services"
	"boq/internal/sheets/memory"
)

func newTestServer(t *testing.T) (*Server, *services.LedgerService) {
	t.Helper()
	logger := log.NewFromSettings(io.Discard, "error", "text", log.ComponentApp)
	svc := services.NewLedgerService(memory.New(), nil, "boqData", logger)
	srv := NewServer(":0", svc, Options{ExportBaseName: "boq_export", Logger: logger})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, svc
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func addJSON(t *testing.T, srv *Server, body string) core.ItemID {
	t.Helper()
	rr := serve(srv, jsonRequest(body))
	if rr.Code != http.StatusCreated {
		t.Fatalf("add status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp struct {
		ID     core.ItemID     `json:"id"`
		Ledger core.LedgerView `json:"ledger"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.ID
}

func decodeView(t *testing.T, rr *httptest.ResponseRecorder) core.LedgerView {
	t.Helper()
	var v core.LedgerView
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode view: %v (%s)", err, rr.Body.String())
	}
	return v
}

func TestIndexAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Bill of Quantities") {
		t.Fatalf("index body missing heading")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing request id header")
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("missing security headers")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := serve(srv, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	if rr := serve(srv, httptest.NewRequest(http.MethodGet, "/nope", nil)); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", rr.Code)
	}
}

func TestReadyReportsStorageFailure(t *testing.T) {
	logger := log.NewFromSettings(io.Discard, "error", "text", log.ComponentApp)
	svc := services.NewLedgerService(memory.New(), nil, "boqData", logger)
	srv := NewServer(":0", svc, Options{
		Logger: logger,
		Ready:  func(context.Context) error { return errors.New("database is locked") },
	})
	defer srv.Shutdown(context.Background())

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "database is locked") {
		t.Fatalf("missing failure detail: %s", rr.Body.String())
	}
}

func TestAddItemJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	addJSON(t, srv, `{"category":"Concrete","description":"Footing","unit":"m3","unit_price":1500,"quantity":12}`)
	addJSON(t, srv, `{"category":"Concrete","description":"Column","unit":"m3","unit_price":1000,"quantity":2}`)

	v := decodeView(t, serve(srv, httptest.NewRequest(http.MethodGet, "/ledger", nil)))
	if len(v.Categories) != 1 || v.Categories[0].SubtotalText != "20,000.00" || v.GrandTotalText != "20,000.00" {
		t.Fatalf("unexpected view %+v", v)
	}
	if v.Categories[0].Items[0].QuantityDetail != "(12)" {
		t.Fatalf("expected manual detail, got %q", v.Categories[0].Items[0].QuantityDetail)
	}
}

func TestAddItemValidationJSON(t *testing.T) {
	srv, svc := newTestServer(t)

	rr := serve(srv, jsonRequest(`{"category":"Concrete","description":"Bad","unit":"m3","unit_price":-5,"quantity":1}`))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["field"] != "unit_price" {
		t.Fatalf("expected unit_price field, got %v", body)
	}
	if svc.Snapshot().Len() != 0 {
		t.Fatalf("rejected add mutated the ledger")
	}

	rr = serve(srv, jsonRequest(`{"category":"Earthwork","description":"Dig","unit":"m2","unit_price":5,"calc_type":"area","width":3}`))
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "width and length required") {
		t.Fatalf("expected area error, got %d %s", rr.Code, rr.Body.String())
	}

	rr = serve(srv, jsonRequest(`{"category":`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", rr.Code)
	}
}

func TestAddItemHTMX(t *testing.T) {
	srv, _ := newTestServer(t)

	req := formRequest(url.Values{
		"category": {"Earthwork"}, "description": {"Fill"}, "unit": {"m2"},
		"unit_price": {"5"}, "calc_type": {"area"}, "width": {"3"}, "length": {"4"},
	})
	req.Header.Set("HX-Request", "true")
	rr := serve(srv, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("HX-Trigger"); !strings.Contains(got, EventLedgerChanged) {
		t.Fatalf("missing ledger-changed trigger: %q", got)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "(3 x 4 = 12.00)") || !strings.Contains(body, "60.00") {
		t.Fatalf("partial missing item: %s", body)
	}
	if strings.Contains(body, "<html") {
		t.Fatalf("expected a partial, got the full page")
	}
}

func TestAddItemPlainFormRedirects(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := serve(srv, formRequest(url.Values{
		"category": {"A"}, "description": {"x"}, "unit": {"u"}, "unit_price": {"1"}, "quantity": {"1"},
	}))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("expected redirect, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestEditDeleteMove(t *testing.T) {
	srv, _ := newTestServer(t)

	a1 := addJSON(t, srv, `{"category":"A","description":"a1","unit":"u","unit_price":1,"quantity":1}`)
	a2 := addJSON(t, srv, `{"category":"A","description":"a2","unit":"u","unit_price":1,"quantity":1}`)
	b1 := addJSON(t, srv, `{"category":"B","description":"b1","unit":"u","unit_price":1,"quantity":1}`)

	// edit
	req := httptest.NewRequest(http.MethodPost, "/items/"+string(a2), strings.NewReader(`{"description":"a2 edited","unit":"m","unit_price":2,"quantity":3}`))
	req.Header.Set("Content-Type", "application/json")
	rr := serve(srv, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("edit status=%d body=%s", rr.Code, rr.Body.String())
	}
	v := decodeView(t, rr)
	if got := v.Categories[0].Items[1]; got.Description != "a2 edited" || got.LineTotal != 6 {
		t.Fatalf("unexpected edited item %+v", got)
	}

	// move a1 into B's block
	req = httptest.NewRequest(http.MethodPost, "/items/"+string(a1)+"/move", strings.NewReader(`{"index":2}`))
	req.Header.Set("Content-Type", "application/json")
	rr = serve(srv, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("move status=%d body=%s", rr.Code, rr.Body.String())
	}
	v = decodeView(t, rr)
	if len(v.Categories) != 2 || v.Categories[1].Name != "B" || len(v.Categories[1].Items) != 2 {
		t.Fatalf("unexpected view after move %+v", v)
	}

	// out of range move
	req = httptest.NewRequest(http.MethodPost, "/items/"+string(a1)+"/move", strings.NewReader(`{"index":9}`))
	req.Header.Set("Content-Type", "application/json")
	if rr := serve(srv, req); rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}

	// delete
	req = httptest.NewRequest(http.MethodDelete, "/items/"+string(b1), nil)
	req.Header.Set("Accept", "application/json")
	rr = serve(srv, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if v := decodeView(t, rr); v.ItemCount != 2 {
		t.Fatalf("expected 2 items, got %d", v.ItemCount)
	}

	req = httptest.NewRequest(http.MethodDelete, "/items/"+string(b1), nil)
	req.Header.Set("Accept", "application/json")
	if rr := serve(srv, req); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/items/row-3", nil)
	req.Header.Set("Accept", "application/json")
	if rr := serve(srv, req); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for malformed id, got %d", rr.Code)
	}
}

func TestExports(t *testing.T) {
	srv, _ := newTestServer(t)
	addJSON(t, srv, `{"category":"Concrete","description":"Footing \"A\"","unit":"m3","unit_price":1500,"quantity":12}`)
	addJSON(t, srv, `{"category":"Concrete","description":"Column","unit":"m3","unit_price":1000,"quantity":2}`)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/export.csv", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("csv status=%d", rr.Code)
	}
	if got := rr.Header().Get("Content-Disposition"); got != `attachment; filename="boq_export.csv"` {
		t.Fatalf("unexpected disposition %q", got)
	}
	body := strings.TrimPrefix(rr.Body.String(), "\uFEFF")
	lines := strings.Split(strings.TrimRight(body, "\r\n"), "\n")
	if len(lines) != 3 || strings.TrimRight(lines[0], "\r") != codec.CSVHeader {
		t.Fatalf("unexpected csv %q", body)
	}
	if !strings.Contains(lines[1], `"Footing ""A"""`) {
		t.Fatalf("description not escaped: %q", lines[1])
	}

	rr = serve(srv, httptest.NewRequest(http.MethodGet, "/export.xlsx", nil))
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != xlsxContentType {
		t.Fatalf("xlsx status=%d type=%q", rr.Code, rr.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")) {
		t.Fatalf("xlsx body is not a zip archive")
	}
}

func TestPrintView(t *testing.T) {
	srv, _ := newTestServer(t)
	addJSON(t, srv, `{"category":"Roofing","description":"Tiles","unit":"m2","unit_price":12,"quantity":40}`)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/print", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("print status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Roofing", "Tiles", "480.00", codec.GrandTotalLabel} {
		if !strings.Contains(body, want) {
			t.Fatalf("print view missing %q", want)
		}
	}
}

func TestMutationsAreRateLimited(t *testing.T) {
	logger := log.NewFromSettings(io.Discard, "error", "text", log.ComponentApp)
	svc := services.NewLedgerService(memory.New(), nil, "boqData", logger)
	srv := NewServer(":0", svc, Options{Logger: logger, RateLimitPerMinute: 2})
	defer srv.Shutdown(context.Background())

	body := `{"category":"A","description":"x","unit":"u","unit_price":1,"quantity":1}`
	for i := 0; i < 2; i++ {
		if rr := serve(srv, jsonRequest(body)); rr.Code != http.StatusCreated {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	if rr := serve(srv, jsonRequest(body)); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr := serve(srv, httptest.NewRequest(http.MethodGet, "/ledger", nil)); rr.Code != http.StatusOK {
		t.Fatalf("reads must not be limited, got %d", rr.Code)
	}
}

type failingExports struct {
	*services.LedgerService
}

func (failingExports) ExportCSV() ([]byte, error) {
	return nil, errors.New("render failed")
}

func TestExportCSVFailureIsInternalError(t *testing.T) {
	logger := log.NewFromSettings(io.Discard, "error", "text", log.ComponentApp)
	svc := services.NewLedgerService(memory.New(), nil, "boqData", logger)
	srv := NewServer(":0", failingExports{svc}, Options{ExportBaseName: "boq_export", Logger: logger})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/export.csv", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Disposition"); got != "" {
		t.Fatalf("failed export must not be offered as a download, got %q", got)
	}
	if strings.Contains(rr.Body.String(), "render failed") {
		t.Fatalf("internal error leaked: %s", rr.Body.String())
	}
}
