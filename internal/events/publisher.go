package events

import (
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/explore"
)

// Publisher forwards driver notifications onto a Bus.
type Publisher struct {
	bus *Bus
}

var _ explore.Observer = (*Publisher)(nil)

// NewPublisher returns an observer that publishes to bus.
func NewPublisher(bus *Bus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) CallCompleted(rec explore.CallRecord) {
	p.bus.Publish(NewCallCompleted(rec.Round, rec.Tool, rec.Outcome.Verdict.String(), rec.Duration))
}

// RoundCompleted always reaches subscribers so progress counts stay exact.
func (p *Publisher) RoundCompleted(res explore.RoundResult) {
	p.bus.Send(NewRoundCompleted(res.Round, res.MetaType, res.Object, res.Status.String()))
}

// Finished publishes the end of the run.
func (p *Publisher) Finished(report explore.Report) {
	p.bus.Send(NewRunFinished(report.Completed, report.Cancelled))
}
