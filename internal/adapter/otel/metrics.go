package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "opsdeck"

// Metrics holds all opsdeck metric instruments.
type Metrics struct {
	TransitionsConfirmed metric.Int64Counter
	TransitionsRejected  metric.Int64Counter
	Rollbacks            metric.Int64Counter
	TasksRearmed         metric.Int64Counter
	BoardRefreshSeconds  metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TransitionsConfirmed, err = meter.Int64Counter("opsdeck.transitions.confirmed",
		metric.WithDescription("Status transitions confirmed by the task store"))
	if err != nil {
		return nil, err
	}

	m.TransitionsRejected, err = meter.Int64Counter("opsdeck.transitions.rejected",
		metric.WithDescription("Status transitions rejected before reaching the store"))
	if err != nil {
		return nil, err
	}

	m.Rollbacks, err = meter.Int64Counter("opsdeck.transitions.rollbacks",
		metric.WithDescription("Optimistic transitions rolled back after a store failure"))
	if err != nil {
		return nil, err
	}

	m.TasksRearmed, err = meter.Int64Counter("opsdeck.tasks.rearmed",
		metric.WithDescription("Recurring tasks re-armed on completion"))
	if err != nil {
		return nil, err
	}

	m.BoardRefreshSeconds, err = meter.Float64Histogram("opsdeck.board.refresh_seconds",
		metric.WithDescription("Board refresh duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
