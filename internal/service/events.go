package service

import (
	"context"

	"github.com/propertyhub/lease-planner/internal/events"
)

// EventWriter is implemented by events.EventProducer.
type EventWriter interface {
	WriteContractEvent(ctx context.Context, e events.ContractEvent) error
	WriteScrapeJobEvent(ctx context.Context, e events.ScrapeJobEvent) error
}

type noopEventWriter struct{}

func (noopEventWriter) WriteContractEvent(context.Context, events.ContractEvent) error {
	return nil
}

func (noopEventWriter) WriteScrapeJobEvent(context.Context, events.ScrapeJobEvent) error {
	return nil
}

func eventWriterOrNoop(ew EventWriter) EventWriter {
	if ew == nil {
		return noopEventWriter{}
	}
	return ew
}
