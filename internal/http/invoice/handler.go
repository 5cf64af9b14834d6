package invoice

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopsolar/backoffice/internal/http/respond"
	"github.com/coopsolar/backoffice/internal/invoice"
)

type Handler struct {
	svc *invoice.Service
}

func NewHandler(svc *invoice.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/{id}/historico", h.history)
	r.Patch("/{id}/status", h.updateStatus)
	r.Put("/{id}/documento", h.attachDocument)
}

type createInvoiceRequest struct {
	MemberID       uuid.UUID       `json:"cooperado_id"`
	PowerPlantID   *uuid.UUID      `json:"usina_id,omitempty"`
	ReferenceMonth string          `json:"mes_referencia"`
	DueDate        string          `json:"data_vencimento"`
	Amount         decimal.Decimal `json:"valor_total"`
	EnergyKWh      decimal.Decimal `json:"consumo_kwh"`
	DocumentURL    string          `json:"pdf_url,omitempty"`
	Status         string          `json:"status,omitempty"`
}

func validation(err error) error {
	if errors.Is(err, invoice.ErrInvalidAmount) ||
		errors.Is(err, invoice.ErrMissingMember) ||
		errors.Is(err, invoice.ErrInvalidDocumentURL) {
		return respond.Invalid(err)
	}

	return err
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, err.Error())
		return
	}

	month, err := time.Parse("2006-01", req.ReferenceMonth)
	if err != nil {
		respond.BadRequest(w, "mes_referencia must be YYYY-MM")
		return
	}

	due, err := time.Parse(time.DateOnly, req.DueDate)
	if err != nil {
		respond.BadRequest(w, "data_vencimento must be YYYY-MM-DD")
		return
	}

	inv, err := h.svc.Create(r.Context(), invoice.CreateParams{
		MemberID:       req.MemberID,
		PowerPlantID:   req.PowerPlantID,
		ReferenceMonth: month,
		DueDate:        due,
		Amount:         req.Amount,
		EnergyKWh:      req.EnergyKWh,
		DocumentURL:    req.DocumentURL,
		Status:         invoice.Status(req.Status),
	})
	if err != nil {
		respond.Error(w, r, validation(err))
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(inv))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := invoice.ListFilter{}
	q := r.URL.Query()

	if s := q.Get("status"); s != "" {
		st, err := invoice.Lifecycle.Parse(s)
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		filter.Status = &st
	}

	if s := q.Get("cooperado_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			respond.BadRequest(w, "invalid cooperado_id")
			return
		}

		filter.MemberID = &id
	}

	if s := q.Get("de"); s != "" {
		if t, err := time.Parse("2006-01", s); err == nil {
			filter.From = new(t)
		}
	}

	if s := q.Get("ate"); s != "" {
		if t, err := time.Parse("2006-01", s); err == nil {
			filter.To = new(t)
		}
	}

	invoices, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(invoices))
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*invoice.Invoice, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.BadRequest(w, "invalid id")
		return nil, false
	}

	inv, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return nil, false
	}

	return inv, true
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	if inv, ok := h.load(w, r); ok {
		respond.JSON(w, http.StatusOK, toResponse(inv))
	}
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	if inv, ok := h.load(w, r); ok {
		respond.JSON(w, http.StatusOK, respond.History(inv.ID, inv.Status))
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

	res, err := h.svc.UpdateStatus(r.Context(), id, invoice.Status(req.Status))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, respond.Transition(invoice.Lifecycle.Entity(), id, res))
}

type attachDocumentRequest struct {
	URL string `json:"pdf_url"`
}

func (h *Handler) attachDocument(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.BadRequest(w, "invalid id")
		return
	}

	var req attachDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, err.Error())
		return
	}

	if req.URL == "" {
		respond.BadRequest(w, "pdf_url is required")
		return
	}

	if err := h.svc.AttachDocument(r.Context(), id, req.URL); err != nil {
		respond.Error(w, r, validation(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
