package matching

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coopsolar/backoffice/internal/http/respond"
	"github.com/coopsolar/backoffice/internal/matching"
)

type Handler struct {
	svc *matching.Service
}

func NewHandler(svc *matching.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/suggest", h.suggest)
	r.Post("/", h.learn)
}

type suggestResponse struct {
	RawDescription       string `json:"descricao_original"`
	PreferredDescription string `json:"descricao_preferida"`
	Category             string `json:"categoria,omitempty"`
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	rawDesc := r.URL.Query().Get("descricao_original")
	if rawDesc == "" {
		respond.BadRequest(w, "descricao_original query parameter is required")
		return
	}

	preferred, category, err := h.svc.Suggest(r.Context(), rawDesc)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, suggestResponse{
		RawDescription:       rawDesc,
		PreferredDescription: preferred,
		Category:             category,
	})
}

type learnRequest struct {
	Pattern     string `json:"padrao_original"`
	Description string `json:"descricao_preferida"`
	Category    string `json:"categoria"`
}

type mappingResponse struct {
	ID          uuid.UUID `json:"id"`
	Pattern     string    `json:"padrao_original"`
	Description string    `json:"descricao_preferida"`
	Category    string    `json:"categoria,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toMappingResponse(m *matching.Mapping) mappingResponse {
	return mappingResponse{
		ID:          m.ID,
		Pattern:     m.Pattern,
		Description: m.Description,
		Category:    m.Category,
		CreatedAt:   m.CreatedAt,
	}
}

func (h *Handler) learn(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, err.Error())
		return
	}

	m, err := h.svc.Learn(r.Context(), req.Pattern, req.Description, req.Category)
	if err != nil {
		if errors.Is(err, matching.ErrEmptyMapping) {
			respond.BadRequest(w, err.Error())
			return
		}

		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, http.StatusCreated, toMappingResponse(m))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.svc.List(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]mappingResponse, len(mappings))
	for i, m := range mappings {
		resp[i] = toMappingResponse(m)
	}

	respond.JSON(w, http.StatusOK, resp)
}
