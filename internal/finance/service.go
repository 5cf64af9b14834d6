package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopsolar/backoffice/internal/status"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=finance
type Repository interface {
	CreateEntry(ctx context.Context, e *Entry) error
	GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error)
	ListEntries(ctx context.Context, filter ListFilter) ([]*Entry, error)

	LoadStatus(ctx context.Context, id uuid.UUID) (status.Snapshot[Status], error)
	SaveTransition(ctx context.Context, snap status.Snapshot[Status], res status.Result[Status]) error

	BeginImport(ctx context.Context, minDate, maxDate time.Time) (ImportTx, error)
}

type ImportTx interface {
	FindDuplicates(ctx context.Context, params []CreateParams) ([]*Entry, error)
	CreateEntries(ctx context.Context, entries []*Entry) error
	Commit() error
	Rollback() error
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
	Type           Type
	Category       string
	Description    string
	RawDescription string
	Amount         decimal.Decimal
	DueDate        time.Time
}

type ListFilter struct {
	Status *Status
	Type   *Type
	From   *time.Time
	To     *time.Time
}

func (p CreateParams) validate() error {
	if !p.Type.Valid() {
		return ErrInvalidType
	}

	if !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}

	return nil
}

// Create records a new entry. Entries always start as pending; a payment is a
// transition, so the payment date is never set at creation.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Entry, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	e := newEntry(params)
	if err := s.repo.CreateEntry(ctx, e); err != nil {
		return nil, err
	}

	return e, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.repo.GetEntry(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Entry, error) {
	return s.repo.ListEntries(ctx, filter)
}

// UpdateStatus moves the entry to next. The payment date follows the status.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, next Status) (status.Result[Status], error) {
	return s.transitions.Apply(ctx, id, next)
}

type ImportResult struct {
	Imported  []*Entry
	New       []CreateParams
	Conflicts []Conflict
}

type Conflict struct {
	Incoming CreateParams
	Existing *Entry
}

// ImportBatch creates entries parsed from a bank statement. When any row
// matches an existing entry nothing is written and the caller gets the
// conflicts back to review.
func (s *Service) ImportBatch(ctx context.Context, params []CreateParams) (*ImportResult, error) {
	if len(params) == 0 {
		return &ImportResult{}, nil
	}

	minDate, maxDate := dateRange(params)

	itx, err := s.repo.BeginImport(ctx, minDate, maxDate)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	duplicates, err := itx.FindDuplicates(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}

	lookup := make(map[dupKey]*Entry, len(duplicates))
	for _, d := range duplicates {
		lookup[keyOf(d.DueDate, d.Amount, d.Type, d.RawDescription)] = d
	}

	var (
		newParams []CreateParams
		conflicts []Conflict
	)

	for _, p := range params {
		if existing, found := lookup[keyOf(p.DueDate, p.Amount, p.Type, p.RawDescription)]; found {
			conflicts = append(conflicts, Conflict{Incoming: p, Existing: existing})
			continue
		}

		newParams = append(newParams, p)
	}

	if len(conflicts) > 0 {
		return &ImportResult{New: newParams, Conflicts: conflicts}, nil
	}

	entries, err := paramsToEntries(newParams)
	if err != nil {
		return nil, err
	}

	if err := itx.CreateEntries(ctx, entries); err != nil {
		return nil, fmt.Errorf("create entries: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	return &ImportResult{Imported: entries}, nil
}

// CreateBatch writes reviewed import rows without duplicate detection.
func (s *Service) CreateBatch(ctx context.Context, params []CreateParams) ([]*Entry, error) {
	if len(params) == 0 {
		return nil, nil
	}

	entries, err := paramsToEntries(params)
	if err != nil {
		return nil, err
	}

	minDate, maxDate := dateRange(params)

	itx, err := s.repo.BeginImport(ctx, minDate, maxDate)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	if err := itx.CreateEntries(ctx, entries); err != nil {
		return nil, fmt.Errorf("create entries: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	return entries, nil
}

// dupKey identifies an imported statement row.
type dupKey struct {
	Date           string
	Amount         string
	Type           Type
	RawDescription string
}

// DuplicateKey identifies a statement line. Two rows with the same key are
// treated as the same line on import.
func DuplicateKey(date time.Time, amount decimal.Decimal, typ Type, raw string) string {
	k := keyOf(date, amount, typ, raw)
	return k.Date + "|" + k.Amount + "|" + string(k.Type) + "|" + k.RawDescription
}

func keyOf(date time.Time, amount decimal.Decimal, typ Type, raw string) dupKey {
	return dupKey{
		Date:           date.Format(time.DateOnly),
		Amount:         amount.StringFixed(2),
		Type:           typ,
		RawDescription: raw,
	}
}

func dateRange(params []CreateParams) (time.Time, time.Time) {
	minDate := params[0].DueDate
	maxDate := params[0].DueDate

	for _, p := range params[1:] {
		if p.DueDate.Before(minDate) {
			minDate = p.DueDate
		}

		if p.DueDate.After(maxDate) {
			maxDate = p.DueDate
		}
	}

	return minDate, maxDate
}

func newEntry(p CreateParams) *Entry {
	return &Entry{
		Type:           p.Type,
		Category:       p.Category,
		Description:    p.Description,
		RawDescription: p.RawDescription,
		Amount:         p.Amount,
		DueDate:        p.DueDate,
		Status:         status.NewTracker(StatusPending),
	}
}

func paramsToEntries(params []CreateParams) ([]*Entry, error) {
	entries := make([]*Entry, len(params))
	for i, p := range params {
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		entries[i] = newEntry(p)
	}

	return entries, nil
}
