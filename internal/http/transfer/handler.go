package transfer

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopsolar/backoffice/internal/http/respond"
	"github.com/coopsolar/backoffice/internal/transfer"
)

type Handler struct {
	svc *transfer.Service
}

func NewHandler(svc *transfer.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/{id}/historico", h.history)
	r.Patch("/{id}/status", h.updateStatus)
}

type createTransferRequest struct {
	SourceAccountID      uuid.UUID       `json:"conta_origem_id"`
	DestinationAccountID uuid.UUID       `json:"conta_destino_id"`
	Amount               decimal.Decimal `json:"valor"`
	Description          string          `json:"descricao"`
	ScheduledFor         string          `json:"data_agendada"`
}

func validation(err error) error {
	switch {
	case errors.Is(err, transfer.ErrMissingAccount),
		errors.Is(err, transfer.ErrSameAccount),
		errors.Is(err, transfer.ErrInvalidAmount):
		return respond.Invalid(err)
	}

	return err
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, err.Error())
		return
	}

	scheduled, err := time.Parse(time.DateOnly, req.ScheduledFor)
	if err != nil {
		respond.BadRequest(w, "data_agendada must be YYYY-MM-DD")
		return
	}

	tr, err := h.svc.Create(r.Context(), transfer.CreateParams{
		SourceAccountID:      req.SourceAccountID,
		DestinationAccountID: req.DestinationAccountID,
		Amount:               req.Amount,
		Description:          req.Description,
		ScheduledFor:         scheduled,
	})
	if err != nil {
		respond.Error(w, r, validation(err))
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(tr))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := transfer.ListFilter{}
	q := r.URL.Query()

	if s := q.Get("status"); s != "" {
		st, err := transfer.Lifecycle.Parse(s)
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		filter.Status = &st
	}

	if s := q.Get("conta_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			respond.BadRequest(w, "invalid conta_id")
			return
		}

		filter.AccountID = &id
	}

	transfers, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(transfers))
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*transfer.Transfer, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.BadRequest(w, "invalid id")
		return nil, false
	}

	tr, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return nil, false
	}

	return tr, true
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	if tr, ok := h.load(w, r); ok {
		respond.JSON(w, http.StatusOK, toResponse(tr))
	}
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	if tr, ok := h.load(w, r); ok {
		respond.JSON(w, http.StatusOK, respond.History(tr.ID, tr.Status))
	}
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.BadRequest(w, "invalid id")
		return
	}

	var req respond.StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, err.Error())
		return
	}

	res, err := h.svc.UpdateStatus(r.Context(), id, transfer.Status(req.Status))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, respond.Transition(transfer.Lifecycle.Entity(), id, res))
}
