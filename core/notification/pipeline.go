package notification

import (
	"context"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/stream"
)

// Pipeline is the per-event processing chain the subscription manager
// feeds: enrich, compose, deduplicate, store. Failures below the composer
// never surface to users; they are logged and the event is dropped.
type Pipeline struct {
	enricher *Enricher
	dedup    *Deduplicator
	store    *Service
	logger   core.Logger
}

var _ stream.EventSink = (*Pipeline)(nil)

func NewPipeline(enricher *Enricher, dedup *Deduplicator, store *Service, logger core.Logger) *Pipeline {
	return &Pipeline{
		enricher: enricher,
		dedup:    dedup,
		store:    store,
		logger:   logger,
	}
}

// Handle processes one change event end to end. ctx is the session
// context: closing a single subscription does not cancel work already in
// flight, but a full logout does, and the result is then discarded here
// rather than erroring anywhere.
func (p *Pipeline) Handle(ctx context.Context, ev stream.ChangeEvent) {
	if ctx.Err() != nil {
		return
	}

	fact, err := p.enricher.Enrich(ctx, ev)
	if err != nil {
		if IsEnrichmentError(err) {
			// expected when related rows were deleted concurrently
			p.logger.Debug("dropping event", err, map[string]interface{}{"table": ev.Table, "op": string(ev.Op)})
		} else {
			p.logger.Error("enriching event", err)
		}
		return
	}

	rec, err := Compose(fact, ev.Op)
	if err != nil {
		// cannot happen for a valid fact; a bug, not a user problem
		p.logger.Error("composing notification", err)
		return
	}

	if !p.dedup.Admit(rec) {
		return
	}
	if ctx.Err() != nil {
		return // session torn down while enriching
	}

	if err := p.store.Append(rec); err != nil {
		p.logger.Error("appending notification", err)
	}
}
