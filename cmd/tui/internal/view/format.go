package view

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coopsolar/backoffice/internal/money"
)

const dbTimeout = 5 * time.Second

func FormatAmount(amount decimal.Decimal) string {
	return money.FormatBRL(amount)
}

func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

func FormatMonth(t time.Time) string {
	return t.Format("01/2006")
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}
