package http

import (
	"net/http"

	"boq/internal/codec"
	"boq/internal/core"
	"boq/internal/log"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	req, err := ParseAddItem(NewRequestBodyParser(r))
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	id, err := s.ledger.AddItem(r.Context(), req)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	log.FromContext(r.Context()).DebugContext(r.Context(), "Item added",
		log.FieldItemID, id,
		log.FieldCategory, req.Category)

	if wantsJSON(r) {
		NewHTMXResponse().
			Status(http.StatusCreated).
			BodyJSON(map[string]interface{}{"id": id, "ledger": s.ledger.View()}).
			Write(w)
		return
	}
	s.writeLedgerChanged(w, r, true)
}

func (s *Server) handleEditItem(w http.ResponseWriter, r *http.Request) {
	id, ok := core.ParseItemID(r.PathValue("id"))
	if !ok {
		s.writeError(w, r, log.OpUpdate, &core.NotFoundError{ID: core.ItemID(r.PathValue("id"))})
		return
	}
	edit, err := ParseItemEdit(NewRequestBodyParser(r))
	if err == nil {
		err = s.ledger.EditItem(r.Context(), id, edit)
	}
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	s.writeMutated(w, r)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := core.ParseItemID(r.PathValue("id"))
	if !ok {
		s.writeError(w, r, log.OpDelete, &core.NotFoundError{ID: core.ItemID(r.PathValue("id"))})
		return
	}
	if err := s.ledger.DeleteItem(r.Context(), id); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	s.writeMutated(w, r)
}

func (s *Server) handleMoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := core.ParseItemID(r.PathValue("id"))
	if !ok {
		s.writeError(w, r, log.OpMove, &core.NotFoundError{ID: core.ItemID(r.PathValue("id"))})
		return
	}
	index, err := ParseMoveIndex(NewRequestBodyParser(r))
	if err == nil {
		err = s.ledger.MoveItem(r.Context(), id, index)
	}
	if err != nil {
		s.writeError(w, r, log.OpMove, err)
		return
	}
	s.writeMutated(w, r)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	data, err := s.ledger.ExportCSV()
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	s.logExport(r, "csv")
	NewHTMXResponse().
		Header("Content-Type", "text/csv; charset=utf-8").
		Header("Content-Disposition", attachment(s.exportBase+".csv")).
		Body(data).
		Write(w)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	data, err := s.ledger.ExportXLSX(codec.DefaultSheetName)
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	s.logExport(r, "xlsx")
	NewHTMXResponse().
		Header("Content-Type", xlsxContentType).
		Header("Content-Disposition", attachment(s.exportBase+".xlsx")).
		Body(data).
		Write(w)
}

func attachment(name string) string {
	return `attachment; filename="` + name + `"`
}

func (s *Server) logExport(r *http.Request, format string) {
	log.FromContext(r.Context()).InfoContext(r.Context(), "Ledger exported",
		log.FieldOperation, log.OpExport,
		log.FieldFormat, format)
}

// writeMutated answers a committed edit, delete or move.
func (s *Server) writeMutated(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		NewHTMXResponse().BodyJSON(s.ledger.View()).Write(w)
		return
	}
	s.writeLedgerChanged(w, r, false)
}

// writeLedgerChanged re-renders the ledger table for htmx callers and
// sends plain form posts back to the page.
func (s *Server) writeLedgerChanged(w http.ResponseWriter, r *http.Request, resetForm bool) {
	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	body, err := s.render("ledger_table.html", s.ledger.View())
	if err != nil {
		s.writeError(w, r, log.OpRender, err)
		return
	}
	resp := NewHTMXResponse().TriggerLedgerChanged().BodyHTML(body)
	if resetForm {
		resp.TriggerFormReset()
	}
	resp.Write(w)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			log.FieldOperation, op,
			log.FieldErrorType, log.ErrorTypeInternal,
			log.FieldError, err)
	} else {
		logger.WarnContext(r.Context(), "Request rejected",
			log.FieldOperation, op,
			log.FieldStatusCode, status,
			log.FieldError, err)
	}

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = "internal error"
	}
	if wantsJSON(r) {
		JSONError(status, msg, errorField(err)).Write(w)
		return
	}
	ErrorResponse(status, msg).TriggerErrorNotification(msg).Write(w)
}
