package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/coopsolar/backoffice/internal/finance"
	"github.com/coopsolar/backoffice/internal/importer/statement"
)

// Suggester maps a raw statement description to the description and
// category the operators prefer for it.
type Suggester interface {
	Suggest(ctx context.Context, rawDescription string) (description, category string, err error)
}

type Service struct {
	importers map[Bank]Importer
	suggester Suggester
}

func NewService(suggester Suggester) *Service {
	return &Service{
		importers: map[Bank]Importer{
			BankAuto:    statement.NewParser(string(BankAuto)),
			BankSicoob:  statement.NewParser(string(BankSicoob)),
			BankBB:      statement.NewParser(string(BankBB)),
			BankGeneric: statement.NewParser(string(BankGeneric)),
		},
		suggester: suggester,
	}
}

// Import parses a statement and applies learned description mappings to
// the resulting rows. A failing lookup leaves the row as parsed.
func (s *Service) Import(ctx context.Context, bank Bank, r io.Reader) ([]finance.CreateParams, error) {
	imp, ok := s.importers[bank]
	if !ok {
		return nil, fmt.Errorf("unknown bank: %s", bank)
	}

	params, err := imp.Parse(r)
	if err != nil {
		return nil, err
	}

	if s.suggester == nil {
		return params, nil
	}

	for i, p := range params {
		desc, category, err := s.suggester.Suggest(ctx, p.RawDescription)
		if err != nil {
			slog.WarnContext(ctx, "description lookup failed", "raw_description", p.RawDescription, "error", err)
			continue
		}

		if desc != "" {
			params[i].Description = desc
		}

		if category != "" {
			params[i].Category = category
		}
	}

	return params, nil
}
