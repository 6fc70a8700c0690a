package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/helmkit/internal/application/catalog"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/internal/interfaces/wire"
	"github.com/turtacn/helmkit/pkg/errors"
	"github.com/turtacn/helmkit/pkg/types/common"
)

// MonomerHandler serves the read-only monomer catalog.
type MonomerHandler struct {
	catalog catalog.Service
	logger  logging.Logger
}

func NewMonomerHandler(c catalog.Service, logger logging.Logger) *MonomerHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &MonomerHandler{catalog: c, logger: logger}
}

// List handles GET /api/v1/monomers?type=peptide. Without a type every
// polymer type is listed.
func (h *MonomerHandler) List(w http.ResponseWriter, r *http.Request) {
	ms, err := h.catalog.List(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, common.NewListResponse(wire.ToMonomers(ms)))
}

// Get handles GET /api/v1/monomers/{type}/{symbol}.
func (h *MonomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	symbol, err := url.PathUnescape(chi.URLParam(r, "symbol"))
	if err != nil {
		writeAppError(w, r, h.logger, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid monomer symbol"))
		return
	}
	m, err := h.catalog.Show(r.Context(), chi.URLParam(r, "type"), symbol)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.ToMonomer(m))
}
