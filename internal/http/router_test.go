package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/coopsolar/backoffice/internal/export"
	"github.com/coopsolar/backoffice/internal/finance"
	backofficehttp "github.com/coopsolar/backoffice/internal/http"
	exporthandler "github.com/coopsolar/backoffice/internal/http/export"
	financehandler "github.com/coopsolar/backoffice/internal/http/finance"
	importhandler "github.com/coopsolar/backoffice/internal/http/importcsv"
	invoicehandler "github.com/coopsolar/backoffice/internal/http/invoice"
	matchinghandler "github.com/coopsolar/backoffice/internal/http/matching"
	transferhandler "github.com/coopsolar/backoffice/internal/http/transfer"
	"github.com/coopsolar/backoffice/internal/importer"
	"github.com/coopsolar/backoffice/internal/invoice"
	"github.com/coopsolar/backoffice/internal/matching"
	"github.com/coopsolar/backoffice/internal/metrics"
	"github.com/coopsolar/backoffice/internal/status"
	"github.com/coopsolar/backoffice/internal/transfer"
)

var now = time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

type fixture struct {
	invoices  *invoice.MockRepository
	entries   *finance.MockRepository
	transfers *transfer.MockRepository
	mappings  *matching.MockRepository
	router    http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := &fixture{
		invoices:  invoice.NewMockRepository(ctrl),
		entries:   finance.NewMockRepository(ctrl),
		transfers: transfer.NewMockRepository(ctrl),
		mappings:  matching.NewMockRepository(ctrl),
	}

	clock := status.WithClock(status.FixedClock(now))

	invoiceSvc := invoice.NewService(f.invoices, clock)
	financeSvc := finance.NewService(f.entries, clock)
	matchingSvc := matching.NewService(f.mappings)

	reg := prometheus.NewRegistry()

	f.router = backofficehttp.New(backofficehttp.Handlers{
		Invoices:  invoicehandler.NewHandler(invoiceSvc),
		Entries:   financehandler.NewHandler(financeSvc),
		Transfers: transferhandler.NewHandler(transfer.NewService(f.transfers, clock)),
		Import:    importhandler.NewHandler(importer.NewService(matchingSvc), financeSvc),
		Matching:  matchinghandler.NewHandler(matchingSvc),
		Export:    exporthandler.NewHandler(export.NewService(invoiceSvc, "", "")),
	}, metrics.New(reg, reg), []string{"http://localhost:3000"})

	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	return rec
}

func TestRouter_Healthz(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_InvoiceStatus(t *testing.T) {
	id := uuid.New()
	snap := status.Snapshot[invoice.Status]{
		ID:      id,
		Version: 1,
		Tracker: status.NewTracker(invoice.StatusGenerated),
	}

	tests := []struct {
		name       string
		body       string
		setupMock  func(repo *invoice.MockRepository)
		wantCode   int
		wantStatus string
		wantError  string
	}{
		{
			name: "Applied",
			body: `{"status":"enviada"}`,
			setupMock: func(repo *invoice.MockRepository) {
				repo.EXPECT().LoadStatus(gomock.Any(), id).Return(snap, nil)
				repo.EXPECT().SaveTransition(gomock.Any(), snap, gomock.Any()).Return(nil)
			},
			wantCode:   http.StatusOK,
			wantStatus: "enviada",
		},
		{
			name: "SameStatus",
			body: `{"status":"gerada"}`,
			setupMock: func(repo *invoice.MockRepository) {
				repo.EXPECT().LoadStatus(gomock.Any(), id).Return(snap, nil)
			},
			wantCode:   http.StatusOK,
			wantStatus: "gerada",
		},
		{
			name:      "InvalidStatus",
			body:      `{"status":"arquivada"}`,
			setupMock: func(repo *invoice.MockRepository) {},
			wantCode:  http.StatusUnprocessableEntity,
			wantError: `invalid fatura status "arquivada"`,
		},
		{
			name: "NotFound",
			body: `{"status":"paga"}`,
			setupMock: func(repo *invoice.MockRepository) {
				repo.EXPECT().LoadStatus(gomock.Any(), id).Return(status.Snapshot[invoice.Status]{}, status.ErrNotFound)
			},
			wantCode: http.StatusNotFound,
		},
		{
			name: "ConflictExhausted",
			body: `{"status":"paga"}`,
			setupMock: func(repo *invoice.MockRepository) {
				repo.EXPECT().LoadStatus(gomock.Any(), id).Return(snap, nil).Times(3)
				repo.EXPECT().SaveTransition(gomock.Any(), snap, gomock.Any()).Return(status.ErrConflict).Times(3)
			},
			wantCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setupMock(f.invoices)

			rec := f.do(http.MethodPatch, "/api/v1/faturas/"+id.String()+"/status", tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

			if tt.wantStatus != "" {
				assert.Equal(t, tt.wantStatus, body["status"])
				assert.NotEmpty(t, body["mensagem"])
			}

			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
			}
		})
	}
}

func TestRouter_EntryPaidReturnsPaymentDate(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	snap := status.Snapshot[finance.Status]{ID: id, Version: 3, Tracker: status.NewTracker(finance.StatusPending)}

	f.entries.EXPECT().LoadStatus(gomock.Any(), id).Return(snap, nil)
	f.entries.EXPECT().SaveTransition(gomock.Any(), snap, gomock.Any()).Return(nil)

	rec := f.do(http.MethodPatch, "/api/v1/lancamentos/"+id.String()+"/status", `{"status":"pago"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Previous string             `json:"previous_status"`
		Status   string             `json:"status"`
		Derived  map[string]*string `json:"derived"`
		Message  string             `json:"mensagem"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "pendente", body.Previous)
	assert.Equal(t, "pago", body.Status)
	require.NotNil(t, body.Derived[finance.PaymentDateField])
	assert.Equal(t, now.Format(time.RFC3339), *body.Derived[finance.PaymentDateField])
	assert.Equal(t, "Status do lançamento atualizado de pendente para pago", body.Message)
}

func TestRouter_TransferHistory(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	tracker, err := status.Restore(transfer.StatusCompleted, []status.Transition[transfer.Status]{
		{Timestamp: now, PreviousStatus: transfer.StatusPending, NewStatus: transfer.StatusCompleted},
	})
	require.NoError(t, err)

	f.transfers.EXPECT().GetTransfer(gomock.Any(), id).Return(&transfer.Transfer{ID: id, Status: tracker}, nil)

	rec := f.do(http.MethodGet, "/api/v1/transferencias/"+id.String()+"/historico", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status    string `json:"status"`
		Initial   string `json:"initial_status"`
		Historico []struct {
			PreviousStatus string `json:"previous_status"`
			NewStatus      string `json:"new_status"`
		} `json:"historico_status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "concluida", body.Status)
	assert.Equal(t, "pendente", body.Initial)
	require.Len(t, body.Historico, 1)
	assert.Equal(t, "concluida", body.Historico[0].NewStatus)
}

func TestRouter_CreateTransfer_Validation(t *testing.T) {
	f := newFixture(t)
	acct := uuid.New()

	body := `{"conta_origem_id":"` + acct.String() + `","conta_destino_id":"` + acct.String() +
		`","valor":"100.00","data_agendada":"2025-03-12"}`

	rec := f.do(http.MethodPost, "/api/v1/transferencias/", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), transfer.ErrSameAccount.Error())
}

func TestRouter_BadID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/faturas/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_AttachDocument(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name      string
		body      string
		setupMock func(repo *invoice.MockRepository)
		wantCode  int
	}{
		{
			name: "Attached",
			body: `{"pdf_url":"https://storage.coop/faturas/2025-02.pdf"}`,
			setupMock: func(repo *invoice.MockRepository) {
				repo.EXPECT().UpdateDocument(gomock.Any(), id, "https://storage.coop/faturas/2025-02.pdf").Return(nil)
			},
			wantCode: http.StatusNoContent,
		},
		{
			name:     "RelativeURL",
			body:     `{"pdf_url":"/faturas/2025-02.pdf"}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "UnsupportedScheme",
			body:     `{"pdf_url":"file:///etc/passwd"}`,
			wantCode: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setupMock != nil {
				tt.setupMock(f.invoices)
			}

			rec := f.do(http.MethodPut, "/api/v1/faturas/"+id.String()+"/documento", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}
