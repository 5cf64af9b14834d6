package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopsolar/backoffice/internal/export"
	"github.com/coopsolar/backoffice/internal/http/respond"
	"github.com/coopsolar/backoffice/internal/invoice"
)

type Handler struct {
	svc *export.Service
}

func NewHandler(svc *export.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.metadata)
	r.Post("/download", h.download)
}

// exportRequest selects invoices by reference month (YYYY-MM) and status.
type exportRequest struct {
	From   string `json:"de,omitempty"`
	To     string `json:"ate,omitempty"`
	Status string `json:"status,omitempty"`
}

func (req exportRequest) filter() (invoice.ListFilter, error) {
	var filter invoice.ListFilter

	if req.From != "" {
		t, err := time.Parse("2006-01", req.From)
		if err != nil {
			return filter, errors.New("de must be YYYY-MM")
		}

		filter.From = &t
	}

	if req.To != "" {
		t, err := time.Parse("2006-01", req.To)
		if err != nil {
			return filter, errors.New("ate must be YYYY-MM")
		}

		filter.To = &t
	}

	if req.Status != "" {
		st, err := invoice.Lifecycle.Parse(req.Status)
		if err != nil {
			return filter, err
		}

		filter.Status = &st
	}

	return filter, nil
}

type invoiceResponse struct {
	ID             uuid.UUID       `json:"id"`
	MemberID       uuid.UUID       `json:"cooperado_id"`
	ReferenceMonth string          `json:"mes_referencia"`
	Amount         decimal.Decimal `json:"valor_total"`
	Status         invoice.Status  `json:"status"`
	DocumentURL    string          `json:"pdf_url,omitempty"`
	File           string          `json:"arquivo,omitempty"`
}

type exportMetadataResponse struct {
	Invoices []invoiceResponse `json:"faturas"`
	Summary  string            `json:"resumo"`
}

func toInvoiceResponse(item export.Item) invoiceResponse {
	resp := invoiceResponse{
		ID:             item.Invoice.ID,
		MemberID:       item.Invoice.MemberID,
		ReferenceMonth: item.Invoice.ReferenceMonth.Format("2006-01"),
		Amount:         item.Invoice.Amount,
		Status:         item.Invoice.Status.Current(),
		DocumentURL:    item.Invoice.DocumentURL,
	}

	if item.FilePath != "" {
		resp.File = filepath.Base(item.FilePath)
	}

	return resp
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) ([]export.Item, string, bool) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, err.Error())
		return nil, "", false
	}

	filter, err := req.filter()
	if err != nil {
		respond.Error(w, r, respond.Invalid(err))
		return nil, "", false
	}

	tmpDir, err := os.MkdirTemp("", "backoffice-export-*")
	if err != nil {
		respond.Error(w, r, err)
		return nil, "", false
	}

	items, err := h.svc.Export(r.Context(), filter, tmpDir)
	if err != nil {
		os.RemoveAll(tmpDir)
		respond.Error(w, r, err)

		return nil, "", false
	}

	return items, tmpDir, true
}

func (h *Handler) metadata(w http.ResponseWriter, r *http.Request) {
	items, tmpDir, ok := h.run(w, r)
	if !ok {
		return
	}
	defer os.RemoveAll(tmpDir)

	resp := exportMetadataResponse{
		Invoices: make([]invoiceResponse, 0, len(items)),
		Summary:  export.Summary(items),
	}
	for _, item := range items {
		resp.Invoices = append(resp.Invoices, toInvoiceResponse(item))
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	items, tmpDir, ok := h.run(w, r)
	if !ok {
		return
	}
	defer os.RemoveAll(tmpDir)

	if err := os.WriteFile(filepath.Join(tmpDir, export.SummaryFile), []byte(export.Summary(items)), 0o644); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"faturas_%s.zip\"", time.Now().Format("20060102")))

	if err := export.WriteZip(w, tmpDir); err != nil {
		slog.ErrorContext(r.Context(), "failed to create zip", "error", err)
	}
}
