package http

import (
	"bytes"
	"context"
	"net/http"
	"sort"
	"time"

	"boq/internal/core"
	"boq/internal/log"
)

// presetCategories seeds the category picker of the entry form.
var presetCategories = []string{
	"งานดิน",
	"งานโครงสร้าง",
	"งานคอนกรีต",
	"งานเหล็ก",
	"งานหลังคา",
	"งานผนัง",
	"งานพื้น",
	"งานฝ้าเพดาน",
	"งานประตูหน้าต่าง",
	"งานสี",
	"งานระบบไฟฟ้า",
	"งานระบบประปา",
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().BodyJSON(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["storage"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	} else {
		checks["storage"] = "not_configured"
	}

	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.limiter.ActiveClients(),
		"hits":           s.limiter.Hits(),
	}
	checks["requests"] = map[string]interface{}{
		"total":      s.tracer.TotalRequests(),
		"suspicious": s.detector.SuspiciousRequests(),
	}

	NewHTMXResponse().
		Status(httpStatus).
		BodyJSON(map[string]interface{}{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"checks":    checks,
		}).
		Write(w)
}

type pageData struct {
	View       core.LedgerView
	Categories []string
	ExportBase string
	Printed    string
}

func (s *Server) pageData() pageData {
	view := s.ledger.View()
	return pageData{
		View:       view,
		Categories: categoryChoices(view),
		ExportBase: s.exportBase,
		Printed:    time.Now().Format("02/01/2006"),
	}
}

// categoryChoices lists the presets followed by ledger categories not
// already among them.
func categoryChoices(v core.LedgerView) []string {
	seen := make(map[string]bool, len(presetCategories))
	out := append([]string(nil), presetCategories...)
	for _, c := range presetCategories {
		seen[c] = true
	}
	var extra []string
	for _, c := range v.Categories {
		if !seen[c.Name] {
			seen[c.Name] = true
			extra = append(extra, c.Name)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "index.html")
}

func (s *Server) handlePrint(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "print.html")
}

// handleLedger returns the recalculated ledger as JSON.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().BodyJSON(s.ledger.View()).Write(w)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, name string) {
	body, err := s.render(name, s.pageData())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldErrorType, log.ErrorTypeInternal,
			log.FieldError, err)
		InternalServerError("failed to render page").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(body).Write(w)
}

// render executes a template into a string so a failure never leaves a
// half-written response.
func (s *Server) render(name string, data interface{}) (string, error) {
	if s.templates == nil {
		return "", errTemplatesMissing
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
