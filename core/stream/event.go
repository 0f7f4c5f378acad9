package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Operation is the kind of row mutation a change event reports.
type Operation string

const (
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

var ErrNoSnapshot = errors.New("change event carries no usable row snapshot")

type (
	// ChangeEvent is a single row-level change reported by a ChangeStream.
	// Before is absent for inserts, After is absent for deletes.
	ChangeEvent struct {
		Table      string          `json:"table"`
		Op         Operation       `json:"op"`
		Before     json.RawMessage `json:"before,omitempty"`
		After      json.RawMessage `json:"after,omitempty"`
		CommitTime time.Time       `json:"commit_time"`
	}

	// FilterFunc is a row predicate applied to events before delivery.
	// A nil filter admits everything.
	FilterFunc func(ChangeEvent) bool

	// ChangeStream opens live change subscriptions against one table.
	// The returned channel is closed when ctx is cancelled or the channel
	// fails; a failed channel surfaces as a premature close.
	ChangeStream interface {
		Subscribe(ctx context.Context, table string, filter FilterFunc) (<-chan ChangeEvent, error)
	}

	// EventSink consumes events forwarded by the subscription manager.
	EventSink interface {
		Handle(ctx context.Context, ev ChangeEvent)
	}
)

// Snapshot returns the row snapshot enrichment must read: After for
// inserts and updates, Before for deletes.
func (ev ChangeEvent) Snapshot() (json.RawMessage, error) {
	switch ev.Op {
	case OpDelete:
		if ev.Before == nil {
			return nil, ErrNoSnapshot
		}
		return ev.Before, nil
	case OpInsert, OpUpdate:
		if ev.After == nil {
			return nil, ErrNoSnapshot
		}
		return ev.After, nil
	}
	return nil, errors.Wrapf(ErrNoSnapshot, "unknown operation %q", ev.Op)
}

// RowID extracts the primary key of the affected row from whichever
// snapshot the event carries.
func (ev ChangeEvent) RowID() (string, error) {
	snap, err := ev.Snapshot()
	if err != nil {
		return "", err
	}
	var row struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(snap, &row); err != nil {
		return "", errors.Wrap(err, "decoding row id")
	}
	if row.ID == "" {
		return "", errors.Wrap(ErrNoSnapshot, "row has no id")
	}
	return row.ID, nil
}
