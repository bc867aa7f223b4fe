package http

import (
	"net/http"
	"strings"

	"imprimecheque/internal/core"
	"imprimecheque/internal/log"
	"imprimecheque/internal/services"
)

func (s *Server) handleListCheckbooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bankID, err := queryID(q, "bankId")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	available, err := queryBool(q, "available")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	cbs, err := s.svc.ListCheckbooks(r.Context(), bankID, available)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	out := make([]checkbookJSON, 0, len(cbs))
	for _, cb := range cbs {
		out = append(out, toCheckbookJSON(cb))
	}
	NewResponse().JSON(out).Write(w)
}

// handleNextReference returns the suggestion to prefill, along with the
// plain start+used formula it may have skipped past.
func (s *Server) handleNextReference(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	suggested, err := s.svc.SuggestReference(r.Context(), id)
	if err != nil {
		s.fail(w, r, log.OpSuggest, err)
		return
	}
	next, err := s.svc.NextAvailableReference(r.Context(), id)
	if err != nil {
		s.fail(w, r, log.OpSuggest, err)
		return
	}
	NewResponse().JSON(map[string]string{
		"reference":     suggested,
		"nextAvailable": next,
	}).Write(w)
}

func (s *Server) handleValidateReference(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	ref := strings.TrimSpace(r.URL.Query().Get("reference"))

	if err := s.svc.ValidateReference(r.Context(), ref, id); err != nil {
		s.fail(w, r, log.OpValidate, err)
		return
	}
	canonical, _ := core.CanonicalReference(ref)
	NewResponse().JSON(map[string]any{"reference": canonical, "valid": true}).Write(w)
}

// handleCheckReference answers the advisory uniqueness probe used while
// typing. It never reserves anything.
func (s *Server) handleCheckReference(w http.ResponseWriter, r *http.Request) {
	ref := strings.TrimSpace(r.URL.Query().Get("reference"))
	exists, err := s.svc.ReferenceExists(r.Context(), ref)
	if err != nil {
		s.fail(w, r, log.OpValidate, err)
		return
	}
	canonical, _ := core.CanonicalReference(ref)
	NewResponse().JSON(map[string]any{"reference": canonical, "exists": exists}).Write(w)
}

func (s *Server) handleIssueCheck(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	fields, err := req.Values()
	if err != nil {
		s.fail(w, r, log.OpIssue, err)
		return
	}

	check, err := s.svc.IssueCheck(r.Context(), services.IssueRequest{
		CheckbookID: req.CheckbookID,
		Reference:   strings.TrimSpace(req.Reference),
		BankID:      req.BankID,
		UserID:      req.UserID,
		Fields:      fields,
	})
	if err != nil {
		s.fail(w, r, log.OpIssue, err)
		return
	}

	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/checks/"+check.Reference).
		JSON(toCheckJSON(check)).
		Write(w)
}

func (s *Server) handleGetCheck(w http.ResponseWriter, r *http.Request) {
	check, err := s.svc.GetCheck(r.Context(), r.PathValue("ref"))
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewResponse().JSON(toCheckJSON(check)).Write(w)
}

// handleCheckDocument renders an issued check for printing.
func (s *Server) handleCheckDocument(w http.ResponseWriter, r *http.Request) {
	doc, _, _, err := s.svc.RenderCheck(r.Context(), r.PathValue("ref"))
	if err != nil {
		s.fail(w, r, log.OpRender, err)
		return
	}
	writeDocument(w, doc)
}

func writeDocument(w http.ResponseWriter, doc services.Document) {
	NewResponse().
		Header("Content-Disposition", `inline; filename="`+doc.FileName()+`"`).
		Header("Cache-Control", "no-store").
		Bytes(doc.Format.ContentType(), doc.Data).
		Write(w)
}
