package statement

// amountMode determines how amounts are extracted from a row.
type amountMode int

const (
	// amountSigned is one column holding "-10,00" or "10,00D"/"10,00C".
	amountSigned amountMode = iota
	// amountSplit is a pair of débito/crédito columns.
	amountSplit
)

// Profile describes the column layout of one bank's CSV export.
type Profile struct {
	Bank       string
	Name       string
	DateCol    string
	DescCol    string
	AmountMode amountMode
	AmountCol  string // amountSigned
	DebitCol   string // amountSplit
	CreditCol  string // amountSplit
	// DocCol, when present, is appended to the raw description so that two
	// identical lines on the same day stay distinct.
	DocCol string
}

func (p Profile) requiredCols() []string {
	cols := []string{p.DateCol, p.DescCol}

	switch p.AmountMode {
	case amountSigned:
		cols = append(cols, p.AmountCol)
	case amountSplit:
		cols = append(cols, p.DebitCol, p.CreditCol)
	}

	return cols
}

// Profiles are tried in order; the more specific layouts come first.
var Profiles = []Profile{
	{
		Bank:       "sicoob",
		Name:       "conta corrente",
		DateCol:    "Data",
		DescCol:    "Histórico",
		AmountMode: amountSigned,
		AmountCol:  "Valor",
		DocCol:     "Documento",
	},
	{
		Bank:       "bb",
		Name:       "extrato",
		DateCol:    "Data",
		DescCol:    "Lançamento",
		AmountMode: amountSigned,
		AmountCol:  "Valor",
		DocCol:     "Nº documento",
	},
	{
		Bank:       "generico",
		Name:       "débito/crédito",
		DateCol:    "Data",
		DescCol:    "Descrição",
		AmountMode: amountSplit,
		DebitCol:   "Débito",
		CreditCol:  "Crédito",
	},
	{
		Bank:       "generico",
		Name:       "valor",
		DateCol:    "Data",
		DescCol:    "Descrição",
		AmountMode: amountSigned,
		AmountCol:  "Valor",
	},
}
