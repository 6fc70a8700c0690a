package handlers

import (
	"net/http"

	"github.com/turtacn/helmkit/internal/application/notation"
	"github.com/turtacn/helmkit/internal/domain/helm"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/internal/interfaces/wire"
	dto "github.com/turtacn/helmkit/pkg/types/notation"
)

// NotationHandler serves POST /api/v1/notations/*.
type NotationHandler struct {
	svc         notation.Service
	logger      logging.Logger
	maxBodySize int64
}

func NewNotationHandler(svc notation.Service, logger logging.Logger, maxBodySize int64) *NotationHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &NotationHandler{svc: svc, logger: logger, maxBodySize: maxBodySize}
}

// decode reads the request body and rejects blank notation text.
func (h *NotationHandler) decode(w http.ResponseWriter, r *http.Request) (*dto.Request, bool) {
	var req dto.Request
	err := decodeJSON(w, r, h.maxBodySize, &req)
	if err == nil {
		err = requireNotation(req.Notation)
	}
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return nil, false
	}
	return &req, true
}

// Validate always answers 200 for parseable input; violations are in the body.
func (h *NotationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Validate(r.Context(), req.Notation)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.ToValidateResponse(res))
}

func (h *NotationHandler) Count(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	n, err := h.svc.Count(r.Context(), req.Notation)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.CountResponse{Count: n})
}

// Canonical defaults to HELM2 output.
func (h *NotationHandler) Canonical(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	version := wire.ParseVersion(req.Version, helm.HELM2)
	out, err := h.svc.Canonical(r.Context(), req.Notation, version)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NotationResponse{Notation: out, Version: string(version)})
}

func (h *NotationHandler) SMILES(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	out, err := h.svc.SMILES(r.Context(), req.Notation)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SMILESResponse{SMILES: out})
}

func (h *NotationHandler) Properties(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Properties(r.Context(), req.Notation)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.ToProperties(p))
}

func (h *NotationHandler) Sequences(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	seqs, err := h.svc.Sequences(r.Context(), req.Notation, notation.SequenceInput{Type: req.Type, Strict: req.Strict})
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SequencesResponse{Sequences: wire.ToSequences(seqs)})
}

// Analyze answers 200 even when individual operations failed; they are
// listed in the report's errors.
func (h *NotationHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	report, err := h.svc.Analyze(r.Context(), req.Notation, notation.AnalyzeOptions{
		Name:         req.Name,
		SequenceType: req.Type,
		Strict:       req.Strict,
		NoCache:      req.NoCache,
		Archive:      req.Archive,
	})
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.ToReport(report))
}

// Convert requires an explicit target version.
func (h *NotationHandler) Convert(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	version := wire.ParseVersion(req.Version, "")
	out, err := h.svc.Convert(r.Context(), req.Notation, version)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NotationResponse{Notation: out, Version: string(version)})
}
