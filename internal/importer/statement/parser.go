package statement

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	enc "github.com/coopsolar/backoffice/internal/encoding"
	"github.com/coopsolar/backoffice/internal/finance"
	"github.com/coopsolar/backoffice/internal/money"
)

var dateLayouts = []string{"02/01/2006", "02/01/06", time.DateOnly}

// Parser reads semicolon separated statement exports and produces
// financial entry params. The layout is chosen by matching the header row
// against the parser's profiles.
type Parser struct {
	profiles []Profile
}

// NewParser returns a parser for the given bank, or for every known layout
// when bank is empty.
func NewParser(bank string) *Parser {
	var ps []Profile

	for _, p := range Profiles {
		if bank == "" || p.Bank == bank {
			ps = append(ps, p)
		}
	}

	return &Parser{profiles: ps}
}

func (p *Parser) Parse(r io.Reader) ([]finance.CreateParams, error) {
	utf8r, charset, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	profile, cols, headerIdx := p.detect(rows)
	if profile == nil {
		return nil, fmt.Errorf("unrecognized statement layout: no header matches %s", p.layouts())
	}

	slog.Debug("parsing statement", "bank", profile.Bank, "layout", profile.Name, "charset", charset)

	return parseRows(profile, cols, rows[headerIdx+1:], headerIdx+1)
}

func (p *Parser) layouts() string {
	names := make([]string, 0, len(p.profiles))
	for _, pr := range p.profiles {
		names = append(names, pr.Bank+"/"+pr.Name)
	}

	return strings.Join(names, ", ")
}

type colIndex map[string]int

func (p *Parser) detect(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			if name := strings.TrimSpace(cell); name != "" {
				cols[name] = i
			}
		}

		for i := range p.profiles {
			if matches(&p.profiles[i], cols) {
				return &p.profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matches(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

// parseRows skips rows without a date (balance lines, footers) and rows
// with a zero amount ("SALDO DO DIA").
func parseRows(p *Profile, cols colIndex, rows [][]string, headerRow int) ([]finance.CreateParams, error) {
	dateIdx := cols[p.DateCol]
	descIdx := cols[p.DescCol]

	docIdx := -1
	if i, ok := cols[p.DocCol]; ok && p.DocCol != "" {
		docIdx = i
	}

	var params []finance.CreateParams

	for i, row := range rows {
		rowNum := headerRow + i + 2

		date, ok := parseDate(cell(row, dateIdx))
		if !ok {
			continue
		}

		desc := cell(row, descIdx)
		if desc == "" {
			return nil, fmt.Errorf("row %d: missing description", rowNum)
		}

		amount, typ, ok := parseAmount(p, cols, row)
		if !ok {
			continue
		}

		raw := desc
		if doc := cell(row, docIdx); doc != "" {
			raw = desc + " " + doc
		}

		params = append(params, finance.CreateParams{
			Type:           typ,
			Description:    desc,
			RawDescription: raw,
			Amount:         amount,
			DueDate:        date,
		})
	}

	return params, nil
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func parseAmount(p *Profile, cols colIndex, row []string) (decimal.Decimal, finance.Type, bool) {
	switch p.AmountMode {
	case amountSigned:
		return signedAmount(cell(row, cols[p.AmountCol]))
	case amountSplit:
		if d, ok := unsignedAmount(cell(row, cols[p.DebitCol])); ok {
			return d, finance.TypeExpense, true
		}

		if d, ok := unsignedAmount(cell(row, cols[p.CreditCol])); ok {
			return d, finance.TypeIncome, true
		}
	}

	return decimal.Zero, "", false
}

// signedAmount maps a credit to receita and a debit to despesa.
func signedAmount(s string) (decimal.Decimal, finance.Type, bool) {
	if s == "" {
		return decimal.Zero, "", false
	}

	d, err := money.ParseBRL(s)
	if err != nil || d.IsZero() {
		return decimal.Zero, "", false
	}

	if d.IsNegative() {
		return d.Neg(), finance.TypeExpense, true
	}

	return d, finance.TypeIncome, true
}

func unsignedAmount(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}

	d, err := money.ParseBRL(s)
	if err != nil || d.IsZero() {
		return decimal.Zero, false
	}

	return d.Abs(), true
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
