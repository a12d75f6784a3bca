package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/fairlens/internal/domain/model"
)

// MeasuresHandler serves the synchronous measure endpoints.
type MeasuresHandler struct {
	deps  Dependencies
	codec *codec
}

// NewMeasuresHandler creates a new measures handler.
func NewMeasuresHandler(deps Dependencies, c *codec) *MeasuresHandler {
	return &MeasuresHandler{deps: deps, codec: c}
}

type groupRequest struct {
	Outcomes  []int `json:"outcomes"`
	Protected []int `json:"protected"`
}

type measureResponse struct {
	Measure string  `json:"measure"`
	Value   float64 `json:"value"`
	N       int     `json:"n"`
}

type stratifiedRequest struct {
	groupRequest
	Stratum []json.RawMessage `json:"stratum"`
}

type situationRequest struct {
	groupRequest
	Individuals [][]float64 `json:"individuals"`
	T           *float64    `json:"t"`
	K           *int        `json:"k"`
}

// HandleList handles GET /v1/measures requests.
func (h *MeasuresHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"measures": h.deps.MeasureNames()})
}

// HandleMeasure handles POST /v1/measures/{name} requests.
func (h *MeasuresHandler) HandleMeasure(w http.ResponseWriter, r *http.Request) {
	const op = "api.measure"
	var req groupRequest
	if err := h.codec.decode(w, r, op, &req); err != nil {
		h.codec.fail(w, r, err)
		return
	}
	name := r.PathValue("name")
	v, err := h.deps.Measure(r.Context(), name, req.Outcomes, req.Protected)
	if err != nil {
		h.codec.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, measureResponse{Measure: name, Value: v, N: len(req.Outcomes)})
}

// HandleUnexplained handles POST /v1/unexplained-difference requests.
func (h *MeasuresHandler) HandleUnexplained(w http.ResponseWriter, r *http.Request) {
	const op = "api.unexplained_difference"
	var req stratifiedRequest
	if err := h.codec.decode(w, r, op, &req); err != nil {
		h.codec.fail(w, r, err)
		return
	}
	if req.Stratum == nil {
		h.codec.fail(w, r, WrapKind(op, ErrBadRequest, errors.New("missing stratum")))
		return
	}
	stratum, err := stratumLabels(op, req.Stratum)
	if err != nil {
		h.codec.fail(w, r, err)
		return
	}
	res, err := h.deps.UnexplainedDifference(r.Context(), req.Outcomes, req.Protected, stratum)
	if err != nil {
		h.codec.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleSituation handles POST /v1/situation-testing requests. Both t and
// k are required.
func (h *MeasuresHandler) HandleSituation(w http.ResponseWriter, r *http.Request) {
	const op = "api.situation_testing"
	var req situationRequest
	if err := h.codec.decode(w, r, op, &req); err != nil {
		h.codec.fail(w, r, err)
		return
	}
	switch {
	case req.T == nil:
		h.codec.fail(w, r, WrapKind(op, ErrBadRequest, errors.New("missing t")))
		return
	case req.K == nil:
		h.codec.fail(w, r, WrapKind(op, ErrBadRequest, errors.New("missing k")))
		return
	}
	res, err := h.deps.SituationTesting(r.Context(), req.Outcomes, req.Protected, req.Individuals,
		model.SituationSpec{Threshold: *req.T, K: *req.K})
	if err != nil {
		h.codec.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
