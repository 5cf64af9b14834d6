package importer

import (
	"io"

	"github.com/coopsolar/backoffice/internal/finance"
)

type Bank string

const (
	// BankAuto tries every known layout.
	BankAuto    Bank = ""
	BankSicoob  Bank = "sicoob"
	BankBB      Bank = "bb"
	BankGeneric Bank = "generico"
)

func (b Bank) Valid() bool {
	switch b {
	case BankAuto, BankSicoob, BankBB, BankGeneric:
		return true
	}

	return false
}

type Importer interface {
	Parse(r io.Reader) ([]finance.CreateParams, error)
}
