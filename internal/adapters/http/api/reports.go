package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/fairlens/internal/domain/model"
)

const (
	defaultListLimit = 20
	maxListLimit     = 1_000
)

// ReportsHandler serves the asynchronous report endpoints.
type ReportsHandler struct {
	deps  Dependencies
	codec *codec
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(deps Dependencies, c *codec) *ReportsHandler {
	return &ReportsHandler{deps: deps, codec: c}
}

// reportRequest mirrors the OpenAPI schema for POST /v1/reports.
type reportRequest struct {
	RequestID   string               `json:"request_id"`
	Outcomes    []int                `json:"outcomes"`
	Protected   []int                `json:"protected"`
	Stratum     []json.RawMessage    `json:"stratum"`
	Individuals [][]float64          `json:"individuals"`
	Situation   *model.SituationSpec `json:"situation"`
	Predicted   []int                `json:"predicted"`
	Distances   [][2]float64         `json:"distances"`
}

type submitResponse struct {
	JobID     string          `json:"job_id"`
	Status    model.JobStatus `json:"status"`
	Duplicate bool            `json:"duplicate"`
}

type listResponse struct {
	Reports []model.JobResult `json:"reports"`
}

// HandleSubmit handles POST /v1/reports requests.
func (h *ReportsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_report"
	var body reportRequest
	if err := h.codec.decode(w, r, op, &body); err != nil {
		h.codec.fail(w, r, err)
		return
	}
	stratum, err := stratumLabels(op, body.Stratum)
	if err != nil {
		h.codec.fail(w, r, err)
		return
	}

	sub, err := h.deps.Submit(r.Context(), model.ReportRequest{
		RequestID:   body.RequestID,
		Outcomes:    body.Outcomes,
		Protected:   body.Protected,
		Stratum:     stratum,
		Individuals: body.Individuals,
		Situation:   body.Situation,
		Predicted:   body.Predicted,
		Distances:   body.Distances,
	})
	if err != nil {
		h.codec.fail(w, r, err)
		return
	}
	if sub.Duplicate {
		writeJSON(w, http.StatusOK, submitResponse{JobID: sub.JobID, Status: "duplicate", Duplicate: true})
		return
	}
	w.Header().Set("Location", "/v1/reports/"+sub.JobID)
	writeJSON(w, http.StatusAccepted, submitResponse{JobID: sub.JobID, Status: model.JobPending})
}

// HandleGet handles GET /v1/reports/{id} requests.
func (h *ReportsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.Report(r.Context(), r.PathValue("id"))
	if err != nil {
		h.codec.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleList handles GET /v1/reports?limit=N requests.
func (h *ReportsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_reports"
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.codec.fail(w, r, WrapKind(op, ErrBadRequest, errors.New("limit must be an integer")))
			return
		}
		if n > maxListLimit {
			h.codec.fail(w, r, WrapKind(op, ErrBadRequest, fmt.Errorf("limit must not exceed %d", maxListLimit)))
			return
		}
		limit = n
	}
	list, err := h.deps.Reports(r.Context(), limit)
	if err != nil {
		h.codec.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Reports: list})
}
