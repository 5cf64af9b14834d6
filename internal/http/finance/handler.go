package finance

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopsolar/backoffice/internal/finance"
	"github.com/coopsolar/backoffice/internal/http/respond"
)

type Handler struct {
	svc *finance.Service
}

func NewHandler(svc *finance.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/{id}/historico", h.history)
	r.Patch("/{id}/status", h.updateStatus)
}

type createEntryRequest struct {
	Type        finance.Type    `json:"tipo"`
	Category    string          `json:"categoria"`
	Description string          `json:"descricao"`
	Amount      decimal.Decimal `json:"valor"`
	DueDate     string          `json:"data_vencimento"`
}

func validation(err error) error {
	if errors.Is(err, finance.ErrInvalidType) || errors.Is(err, finance.ErrInvalidAmount) {
		return respond.Invalid(err)
	}

	return err
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, err.Error())
		return
	}

	due, err := time.Parse(time.DateOnly, req.DueDate)
	if err != nil {
		respond.BadRequest(w, "data_vencimento must be YYYY-MM-DD")
		return
	}

	e, err := h.svc.Create(r.Context(), finance.CreateParams{
		Type:        req.Type,
		Category:    req.Category,
		Description: req.Description,
		Amount:      req.Amount,
		DueDate:     due,
	})
	if err != nil {
		respond.Error(w, r, validation(err))
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(e))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := finance.ListFilter{}
	q := r.URL.Query()

	if s := q.Get("status"); s != "" {
		st, err := finance.Lifecycle.Parse(s)
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		filter.Status = &st
	}

	if s := q.Get("tipo"); s != "" {
		typ := finance.Type(s)
		if !typ.Valid() {
			respond.Error(w, r, respond.Invalid(finance.ErrInvalidType))
			return
		}

		filter.Type = &typ
	}

	if s := q.Get("de"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.From = new(t)
		}
	}

	if s := q.Get("ate"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.To = new(t)
		}
	}

	entries, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(entries))
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*finance.Entry, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.BadRequest(w, "invalid id")
		return nil, false
	}

	e, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return nil, false
	}

	return e, true
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	if e, ok := h.load(w, r); ok {
		respond.JSON(w, http.StatusOK, toResponse(e))
	}
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	if e, ok := h.load(w, r); ok {
		respond.JSON(w, http.StatusOK, respond.History(e.ID, e.Status))
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

	res, err := h.svc.UpdateStatus(r.Context(), id, finance.Status(req.Status))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, respond.Transition(finance.Lifecycle.Entity(), id, res))
}
