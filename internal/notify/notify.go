package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/coopsolar/backoffice/internal/status"
)

var entityLabels = map[string]string{
	"fatura":        "da fatura",
	"lancamento":    "do lançamento",
	"transferencia": "da transferência",
}

// Message renders the plain-text message shown to the operator.
func Message(o status.Outcome) string {
	subject, ok := entityLabels[o.Entity]
	if !ok {
		subject = "de " + o.Entity
	}

	switch {
	case errors.Is(o.Err, status.ErrInvalidStatus):
		return fmt.Sprintf("Status inválido %s: %q", subject, o.To)
	case errors.Is(o.Err, status.ErrNotFound):
		return fmt.Sprintf("Registro %s não encontrado", subject)
	case errors.Is(o.Err, status.ErrConflict):
		return fmt.Sprintf("O status %s foi alterado por outra pessoa, tente novamente", subject)
	case o.Err != nil:
		return fmt.Sprintf("Erro ao atualizar status %s", subject)
	case o.NoOp:
		return fmt.Sprintf("Status %s já era %s", subject, o.To)
	}

	return fmt.Sprintf("Status %s atualizado de %s para %s", subject, o.From, o.To)
}

// Logger writes every outcome to slog.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}

	return &Logger{logger: logger}
}

func (l *Logger) Notify(ctx context.Context, o status.Outcome) {
	attrs := []any{
		"entity", o.Entity,
		"id", o.ID,
		"from", o.From,
		"to", o.To,
		"noop", o.NoOp,
	}

	if o.Err != nil {
		l.logger.WarnContext(ctx, Message(o), append(attrs, "error", o.Err)...)
		return
	}

	l.logger.InfoContext(ctx, Message(o), attrs...)
}

// Metrics counts outcomes per entity, target status and result.
type Metrics struct {
	transitions *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "status_transitions_total",
				Help: "Status transition requests by entity, target status and outcome.",
			},
			[]string{"entity", "to", "outcome"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.transitions)
	}

	return m
}

// Outcome labels.
const (
	OutcomeApplied  = "applied"
	OutcomeNoOp     = "noop"
	OutcomeInvalid  = "invalid"
	OutcomeConflict = "conflict"
	OutcomeNotFound = "not_found"
	OutcomeFailed   = "failed"
)

func (m *Metrics) Notify(_ context.Context, o status.Outcome) {
	to := o.To
	if errors.Is(o.Err, status.ErrInvalidStatus) {
		to = "invalid"
	}

	m.transitions.WithLabelValues(o.Entity, to, outcomeLabel(o)).Inc()
}

// Counter exposes the underlying vector, mainly for tests.
func (m *Metrics) Counter() *prometheus.CounterVec {
	return m.transitions
}

func outcomeLabel(o status.Outcome) string {
	switch {
	case errors.Is(o.Err, status.ErrInvalidStatus):
		return OutcomeInvalid
	case errors.Is(o.Err, status.ErrConflict):
		return OutcomeConflict
	case errors.Is(o.Err, status.ErrNotFound):
		return OutcomeNotFound
	case o.Err != nil:
		return OutcomeFailed
	case o.NoOp:
		return OutcomeNoOp
	}

	return OutcomeApplied
}

// Multi fans an outcome out to several notifiers.
type Multi []status.Notifier

func (m Multi) Notify(ctx context.Context, o status.Outcome) {
	for _, n := range m {
		n.Notify(ctx, o)
	}
}
