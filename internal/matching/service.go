package matching

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrEmptyMapping = errors.New("mapping requires a raw pattern and a description")

// Mapping rewrites statement lines whose raw description contains Pattern.
type Mapping struct {
	ID          uuid.UUID
	Pattern     string
	Description string
	Category    string
	CreatedAt   time.Time
}

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=matching
type Repository interface {
	FindMatch(ctx context.Context, rawDescription string) (*Mapping, error)
	CreateMapping(ctx context.Context, mapping *Mapping) error
	ListMappings(ctx context.Context) ([]*Mapping, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Suggest returns the preferred description and category for a raw
// statement description. Both are empty when nothing matches.
func (s *Service) Suggest(ctx context.Context, rawDescription string) (string, string, error) {
	m, err := s.repo.FindMatch(ctx, rawDescription)
	if err != nil || m == nil {
		return "", "", err
	}

	return m.Description, m.Category, nil
}

// Learn remembers a mapping. The longest matching pattern wins on lookup.
func (s *Service) Learn(ctx context.Context, pattern, description, category string) (*Mapping, error) {
	m := &Mapping{
		Pattern:     strings.TrimSpace(pattern),
		Description: strings.TrimSpace(description),
		Category:    strings.TrimSpace(category),
	}

	if m.Pattern == "" || m.Description == "" {
		return nil, ErrEmptyMapping
	}

	if err := s.repo.CreateMapping(ctx, m); err != nil {
		return nil, err
	}

	return m, nil
}

func (s *Service) List(ctx context.Context) ([]*Mapping, error) {
	return s.repo.ListMappings(ctx)
}
