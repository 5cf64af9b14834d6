package importcsv

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
	"github.com/coopsolar/backoffice/internal/importer"
)

type Handler struct {
	importSvc  *importer.Service
	financeSvc *finance.Service
}

func NewHandler(importSvc *importer.Service, financeSvc *finance.Service) *Handler {
	return &Handler{
		importSvc:  importSvc,
		financeSvc: financeSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importStatement)
	r.Post("/confirm", h.confirmImport)
}

type entryResponse struct {
	ID             uuid.UUID       `json:"id"`
	Type           finance.Type    `json:"tipo"`
	Category       string          `json:"categoria,omitempty"`
	Description    string          `json:"descricao"`
	RawDescription string          `json:"descricao_original,omitempty"`
	Amount         decimal.Decimal `json:"valor"`
	DueDate        string          `json:"data_vencimento"`
	Status         finance.Status  `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
}

type importSuccessResponse struct {
	Imported int             `json:"importados"`
	Entries  []entryResponse `json:"lancamentos"`
}

type createParamsDTO struct {
	Type           finance.Type    `json:"tipo"`
	Category       string          `json:"categoria,omitempty"`
	Description    string          `json:"descricao"`
	RawDescription string          `json:"descricao_original"`
	Amount         decimal.Decimal `json:"valor"`
	DueDate        string          `json:"data_vencimento"`
}

type conflictDTO struct {
	Incoming createParamsDTO `json:"incoming"`
	Existing entryResponse   `json:"existing"`
}

type importConflictResponse struct {
	New       []createParamsDTO `json:"new"`
	Conflicts []conflictDTO     `json:"conflicts"`
}

type confirmRequest struct {
	Params []createParamsDTO `json:"params"`
}

func (h *Handler) importStatement(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		respond.BadRequest(w, "failed to parse form: "+err.Error())
		return
	}

	bank := importer.Bank(r.FormValue("bank"))
	if !bank.Valid() {
		respond.BadRequest(w, "unknown bank: "+string(bank))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respond.BadRequest(w, "file field is required")
		return
	}
	defer file.Close()

	params, err := h.importSvc.Import(r.Context(), bank, file)
	if err != nil {
		respond.BadRequest(w, err.Error())
		return
	}

	result, err := h.financeSvc.ImportBatch(r.Context(), params)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if len(result.Conflicts) > 0 {
		resp := importConflictResponse{
			New:       make([]createParamsDTO, 0, len(result.New)),
			Conflicts: make([]conflictDTO, 0, len(result.Conflicts)),
		}
		for _, p := range result.New {
			resp.New = append(resp.New, toParamsDTO(p))
		}

		for _, c := range result.Conflicts {
			resp.Conflicts = append(resp.Conflicts, conflictDTO{
				Incoming: toParamsDTO(c.Incoming),
				Existing: toEntryResponse(c.Existing),
			})
		}

		respond.JSON(w, http.StatusConflict, resp)

		return
	}

	respond.JSON(w, http.StatusCreated, toSuccessResponse(result.Imported))
}

func (h *Handler) confirmImport(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	params := make([]finance.CreateParams, 0, len(req.Params))
	for _, p := range req.Params {
		due, err := time.Parse(time.DateOnly, p.DueDate)
		if err != nil {
			respond.BadRequest(w, "data_vencimento must be YYYY-MM-DD")
			return
		}

		params = append(params, finance.CreateParams{
			Type:           p.Type,
			Category:       p.Category,
			Description:    p.Description,
			RawDescription: p.RawDescription,
			Amount:         p.Amount,
			DueDate:        due,
		})
	}

	entries, err := h.financeSvc.CreateBatch(r.Context(), params)
	if err != nil {
		if errors.Is(err, finance.ErrInvalidType) || errors.Is(err, finance.ErrInvalidAmount) {
			err = respond.Invalid(err)
		}

		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, http.StatusCreated, toSuccessResponse(entries))
}

func toSuccessResponse(entries []*finance.Entry) importSuccessResponse {
	responses := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, toEntryResponse(e))
	}

	return importSuccessResponse{
		Imported: len(entries),
		Entries:  responses,
	}
}

func toEntryResponse(e *finance.Entry) entryResponse {
	return entryResponse{
		ID:             e.ID,
		Type:           e.Type,
		Category:       e.Category,
		Description:    e.Description,
		RawDescription: e.RawDescription,
		Amount:         e.Amount,
		DueDate:        e.DueDate.Format(time.DateOnly),
		Status:         e.Status.Current(),
		CreatedAt:      e.CreatedAt,
	}
}

func toParamsDTO(p finance.CreateParams) createParamsDTO {
	return createParamsDTO{
		Type:           p.Type,
		Category:       p.Category,
		Description:    p.Description,
		RawDescription: p.RawDescription,
		Amount:         p.Amount,
		DueDate:        p.DueDate.Format(time.DateOnly),
	}
}
