package notification

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound = errors.New("notification not found")
)

type (
	// State is the full persisted notification document: the records plus
	// the admitted-id ledger, serialized together under one key so that
	// deduplication survives restarts along with the records themselves.
	State struct {
		Records  []Record `json:"records"`
		Admitted []string `json:"admitted"`
	}

	// Repository persists the whole State as one document. All writers go
	// through Service; nothing else touches notification storage.
	Repository interface {
		LoadState() (State, error)
		SaveState(State) error
	}

	// Sink is an external, best-effort consumer of freshly appended
	// records (system notification tray, email digest). Failures must
	// never block the store.
	Sink interface {
		Notify(rec Record)
	}

	// Service is the durable, ordered notification store exposed to UI
	// clients. All mutations write through to the Repository; a failed
	// write still applies in memory and is retried on the next write.
	Service struct {
		repo      Repository
		logger    core.Logger
		retention time.Duration
		maxCount  int
		sinks     []Sink

		mu        sync.Mutex
		records   []Record // newest first, ordered by CreatedAt
		admitted  map[string]struct{}
		listeners []chan struct{}
	}
)

// NewService loads the persisted state and returns a ready store.
func NewService(repo Repository, logger core.Logger, conf core.NotificationConfig, sinks ...Sink) (*Service, error) {
	state, err := repo.LoadState()
	if err != nil {
		return nil, errors.Wrap(err, "loading notification state")
	}

	svc := &Service{
		repo:      repo,
		logger:    logger,
		retention: conf.Retention,
		maxCount:  conf.MaxRecords,
		sinks:     sinks,
		records:   state.Records,
		admitted:  make(map[string]struct{}, len(state.Admitted)+len(state.Records)),
	}
	for _, id := range state.Admitted {
		svc.admitted[id] = struct{}{}
	}
	// stored records are admitted by definition
	for _, rec := range state.Records {
		svc.admitted[rec.ID] = struct{}{}
	}
	svc.sortLocked()
	return svc, nil
}

// Append stores a new record, idempotent with respect to ID: appending an
// id already present is a no-op. New records are handed to the delivery
// sinks; sink failures are the sinks' problem, never the store's.
func (svc *Service) Append(rec Record) error {
	svc.mu.Lock()
	for _, r := range svc.records {
		if r.ID == rec.ID {
			svc.mu.Unlock()
			return nil
		}
	}
	svc.records = append(svc.records, rec)
	svc.admitted[rec.ID] = struct{}{}
	svc.sortLocked()
	svc.applyRetentionLocked(time.Now().UTC())
	svc.persistLocked()
	svc.broadcastLocked()
	sinks := svc.sinks
	svc.mu.Unlock()

	for _, sink := range sinks {
		go sink.Notify(rec)
	}
	return nil
}

// MarkRead flags one record as read.
func (svc *Service) MarkRead(id string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	for i := range svc.records {
		if svc.records[i].ID == id {
			if !svc.records[i].Read {
				svc.records[i].Read = true
				svc.persistLocked()
				svc.broadcastLocked()
			}
			return nil
		}
	}
	return ErrNotFound
}

// MarkAllRead flags every record as read.
func (svc *Service) MarkAllRead() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	var changed bool
	for i := range svc.records {
		if !svc.records[i].Read {
			svc.records[i].Read = true
			changed = true
		}
	}
	if changed {
		svc.persistLocked()
		svc.broadcastLocked()
	}
	return nil
}

// List returns every record, newest first.
func (svc *Service) List() []Record {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	out := make([]Record, len(svc.records))
	copy(out, svc.records)
	return out
}

// UnreadCount is always recomputed from the records, never stored, so it
// cannot drift.
func (svc *Service) UnreadCount() int {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	var n int
	for _, rec := range svc.records {
		if !rec.Read {
			n++
		}
	}
	return n
}

// Listen registers a re-render hook: the returned channel receives a tick
// after every visible store change. Slow listeners miss ticks rather than
// blocking the store.
func (svc *Service) Listen() <-chan struct{} {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	ch := make(chan struct{}, 1)
	svc.listeners = append(svc.listeners, ch)
	return ch
}

// Unlisten removes a previously registered hook.
func (svc *Service) Unlisten(ch <-chan struct{}) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	for i, l := range svc.listeners {
		if (<-chan struct{})(l) == ch {
			svc.listeners = append(svc.listeners[:i], svc.listeners[i+1:]...)
			close(l)
			return
		}
	}
}

// Prune applies the retention policy now and persists the result.
func (svc *Service) Prune(now time.Time) int {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	before := len(svc.records)
	svc.applyRetentionLocked(now.UTC())
	if removed := before - len(svc.records); removed > 0 {
		svc.persistLocked()
		svc.broadcastLocked()
		return removed
	}
	return 0
}

// admitOnce is the deduplication ledger: true exactly once per id.
func (svc *Service) admitOnce(id string) bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if _, ok := svc.admitted[id]; ok {
		return false
	}
	svc.admitted[id] = struct{}{}
	return true
}

func (svc *Service) sortLocked() {
	sort.SliceStable(svc.records, func(i, j int) bool {
		return svc.records[i].CreatedAt.After(svc.records[j].CreatedAt)
	})
}

// applyRetentionLocked evicts by age and count. Evicted ids stay in the
// admitted ledger so history cannot come back as "new".
func (svc *Service) applyRetentionLocked(now time.Time) {
	if svc.retention > 0 {
		cutoff := now.Add(-svc.retention)
		kept := svc.records[:0]
		for _, rec := range svc.records {
			if rec.CreatedAt.After(cutoff) {
				kept = append(kept, rec)
			}
		}
		svc.records = kept
	}
	if svc.maxCount > 0 && len(svc.records) > svc.maxCount {
		svc.records = svc.records[:svc.maxCount]
	}
}

// persistLocked writes the full document through. On failure the
// in-memory state still stands (availability over durability for this
// data); the full-document write means the next successful persist
// reconciles everything lost.
func (svc *Service) persistLocked() {
	state := State{
		Records:  make([]Record, len(svc.records)),
		Admitted: make([]string, 0, len(svc.admitted)),
	}
	copy(state.Records, svc.records)
	for id := range svc.admitted {
		state.Admitted = append(state.Admitted, id)
	}
	sort.Strings(state.Admitted)

	if err := svc.repo.SaveState(state); err != nil {
		svc.logger.Error("persisting notification state", errors.Wrap(err, "persisting notification state"))
	}
}

func (svc *Service) broadcastLocked() {
	for _, ch := range svc.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
