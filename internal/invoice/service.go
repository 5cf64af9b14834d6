package invoice

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopsolar/backoffice/internal/status"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=invoice
type Repository interface {
	CreateInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)
	ListInvoices(ctx context.Context, filter ListFilter) ([]*Invoice, error)
	UpdateDocument(ctx context.Context, id uuid.UUID, url string) error

	LoadStatus(ctx context.Context, id uuid.UUID) (status.Snapshot[Status], error)
	SaveTransition(ctx context.Context, snap status.Snapshot[Status], res status.Result[Status]) error
}

type Service struct {
	repo        Repository
	transitions *status.Updater[Status]
}

func NewService(repo Repository, opts ...status.UpdaterOption) *Service {
	return &Service{
		repo:        repo,
		transitions: status.NewUpdater(Lifecycle, repo, opts...),
	}
}

type CreateParams struct {
	MemberID       uuid.UUID
	PowerPlantID   *uuid.UUID
	ReferenceMonth time.Time
	DueDate        time.Time
	Amount         decimal.Decimal
	EnergyKWh      decimal.Decimal
	DocumentURL    string
	// Status defaults to StatusGenerated.
	Status Status
}

type ListFilter struct {
	Status   *Status
	MemberID *uuid.UUID
	From     *time.Time
	To       *time.Time
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Invoice, error) {
	initial := params.Status
	if initial == "" {
		initial = StatusGenerated
	}

	if _, err := Lifecycle.Parse(string(initial)); err != nil {
		return nil, err
	}

	if params.MemberID == uuid.Nil {
		return nil, ErrMissingMember
	}

	if !params.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	if params.DocumentURL != "" {
		if err := validateDocumentURL(params.DocumentURL); err != nil {
			return nil, err
		}
	}

	inv := &Invoice{
		MemberID:       params.MemberID,
		PowerPlantID:   params.PowerPlantID,
		ReferenceMonth: monthStart(params.ReferenceMonth),
		DueDate:        params.DueDate,
		Amount:         params.Amount,
		EnergyKWh:      params.EnergyKWh,
		DocumentURL:    params.DocumentURL,
		Status:         status.NewTracker(initial),
	}
	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Invoice, error) {
	return s.repo.ListInvoices(ctx, filter)
}

func (s *Service) AttachDocument(ctx context.Context, id uuid.UUID, documentURL string) error {
	if err := validateDocumentURL(documentURL); err != nil {
		return err
	}

	if err := s.repo.UpdateDocument(ctx, id, documentURL); err != nil {
		return fmt.Errorf("attaching document: %w", err)
	}

	return nil
}

// UpdateStatus moves the invoice to next, recording the transition.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, next Status) (status.Result[Status], error) {
	return s.transitions.Apply(ctx, id, next)
}

// validateDocumentURL accepts absolute http(s) URLs only.
func validateDocumentURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return fmt.Errorf("%w: %q", ErrInvalidDocumentURL, raw)
	}

	return nil
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
