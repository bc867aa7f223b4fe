package http

import (
	"net/http"

	"imprimecheque/internal/core"
	"imprimecheque/internal/log"
)

func (s *Server) handleListBanks(w http.ResponseWriter, r *http.Request) {
	banks, err := s.svc.ListBanks(r.Context())
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	out := make([]bankJSON, 0, len(banks))
	for _, b := range banks {
		out = append(out, toBankJSON(b))
	}
	NewResponse().JSON(out).Write(w)
}

func (s *Server) handleGetBank(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	bank, err := s.svc.GetBank(r.Context(), id)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewResponse().JSON(toBankJSON(bank)).Write(w)
}

// handleGetLayout returns the layout a user prints with: the bank default
// merged with the user's calibration when userId is given.
func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	bankID, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	userID, err := queryID(r.URL.Query(), "userId")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	l, err := s.svc.ResolveLayout(r.Context(), bankID, userID)
	if err != nil {
		s.fail(w, r, log.OpResolve, err)
		return
	}
	NewResponse().JSON(l).Write(w)
}

func (s *Server) handleUpdateLayout(w http.ResponseWriter, r *http.Request) {
	bankID, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	var positions core.FieldLayout
	if err := decodeJSON(w, r, &positions); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	if err := s.svc.UpdateBankPositions(r.Context(), bankID, positions); err != nil {
		s.fail(w, r, log.OpCalibrate, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSaveCalibration(w http.ResponseWriter, r *http.Request) {
	var req calibrationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	if err := s.svc.SaveCalibration(r.Context(), req.UserID, req.BankID, req.Positions); err != nil {
		s.fail(w, r, log.OpCalibrate, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSpell(w http.ResponseWriter, r *http.Request) {
	var req spellRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	words, err := s.svc.SpellString(req.Amount)
	if err != nil {
		s.fail(w, r, log.OpSpell, err)
		return
	}
	NewResponse().JSON(map[string]string{
		"amount":   req.Amount,
		"words":    words,
		"currency": s.svc.Currency().Code,
	}).Write(w)
}

// handleRenderPreview renders typed fields on the bank template without
// issuing a check.
func (s *Server) handleRenderPreview(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	fields, err := req.Values()
	if err != nil {
		s.fail(w, r, log.OpRender, err)
		return
	}

	doc, err := s.svc.PreviewCheck(r.Context(), req.BankID, req.UserID, fields)
	if err != nil {
		s.fail(w, r, log.OpRender, err)
		return
	}
	writeDocument(w, doc)
}
