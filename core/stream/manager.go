package stream

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/school"
)

// State is the lifecycle state of one managed subscription.
type State int

const (
	StateIdle State = iota
	StateSubscribing
	StateActive
	StateError
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubscribing:
		return "subscribing"
	case StateActive:
		return "active"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

var errChannelClosed = errors.New("change channel closed unexpectedly")

type (
	// subscription is the internal handle for one (table, scope) channel.
	// It is owned exclusively by the Manager; nothing else may hold it.
	subscription struct {
		table    string
		scopeSig string
		state    State
		err      error
		attempts int
		cancel   context.CancelFunc
	}

	// Status is the externally observable snapshot of a subscription,
	// exposed for diagnostics ("live updates unavailable" indicators).
	Status struct {
		Table    string `json:"table"`
		Scope    string `json:"scope"`
		State    string `json:"state"`
		Attempts int    `json:"attempts"`
		Error    string `json:"error,omitempty"`
	}

	// Manager owns every change subscription for the current session
	// scope. Reconcile is safe to call repeatedly and concurrently; the
	// latest call's desired state always wins.
	Manager struct {
		stream       ChangeStream
		sink         EventSink
		logger       core.Logger
		retryMax     int
		retryBackoff time.Duration

		mu         sync.Mutex
		base       context.Context
		subs       map[string]*subscription // keyed by table
		scope      Scope
		scopeSig   string
		session    context.Context // live while a user is present
		sessionEnd context.CancelFunc
	}
)

func NewManager(st ChangeStream, sink EventSink, logger core.Logger, conf core.NotificationConfig) *Manager {
	retryMax := conf.SubscribeRetryMax
	if retryMax <= 0 {
		retryMax = 5
	}
	backoff := conf.SubscribeRetryBackoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	return &Manager{
		stream:       st,
		sink:         sink,
		logger:       logger,
		retryMax:     retryMax,
		retryBackoff: backoff,
		base:         context.Background(),
		subs:         make(map[string]*subscription),
	}
}

// Reconcile drives the subscription set to match scope: exactly one live
// subscription per watched table for a non-empty scope, none for an empty
// one. Stale subscriptions are closed and released; in-flight work from a
// superseded call cannot resurrect once closed.
func (m *Manager) Reconcile(scope Scope) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sig := scope.Signature()
	if sig == m.scopeSig && m.subsLiveLocked() {
		return // already converged
	}

	// tear down whatever belongs to the previous scope
	for table, sub := range m.subs {
		sub.cancel()
		delete(m.subs, table)
	}

	m.scope = scope
	m.scopeSig = sig

	if scope.Empty() {
		// logout: in-flight enrichments are pointless now, abort them too
		if m.sessionEnd != nil {
			m.sessionEnd()
			m.session, m.sessionEnd = nil, nil
		}
		return
	}

	if m.session == nil || m.session.Err() != nil {
		m.session, m.sessionEnd = context.WithCancel(m.base)
	}

	for _, table := range school.WatchedTables() {
		ctx, cancel := context.WithCancel(m.session)
		sub := &subscription{
			table:    table,
			scopeSig: sig,
			state:    StateIdle,
			cancel:   cancel,
		}
		m.subs[table] = sub
		go m.run(ctx, sub, scope.Filter(table))
	}
}

// Healthy reports whether live updates are flowing for the current scope.
// An empty scope is trivially healthy; a non-empty scope with zero active
// subscriptions is the only condition callers may surface to users.
func (m *Manager) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.scopeSig == "" {
		return true
	}
	for _, sub := range m.subs {
		if sub.state == StateActive {
			return true
		}
	}
	return false
}

// Statuses snapshots every current subscription for diagnostics.
func (m *Manager) Statuses() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	sts := make([]Status, 0, len(m.subs))
	for _, sub := range m.subs {
		st := Status{
			Table:    sub.table,
			Scope:    sub.scopeSig,
			State:    sub.state.String(),
			Attempts: sub.attempts,
		}
		if sub.err != nil {
			st.Error = sub.err.Error()
		}
		sts = append(sts, st)
	}
	return sts
}

// CurrentScope returns the scope of the latest Reconcile call.
func (m *Manager) CurrentScope() Scope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scope
}

// Close tears down every subscription and the session.
func (m *Manager) Close() {
	m.Reconcile(Scope{})
}

func (m *Manager) subsLiveLocked() bool {
	if m.scopeSig == "" {
		return len(m.subs) == 0
	}
	for _, table := range school.WatchedTables() {
		sub, ok := m.subs[table]
		if !ok || sub.state == StateClosed {
			return false
		}
	}
	return true
}

// run owns one subscription's lifecycle: Idle -> Subscribing -> Active,
// with bounded backoff retries through Error, ending in Closed on
// teardown or in Error once retries are exhausted.
func (m *Manager) run(ctx context.Context, sub *subscription, filter FilterFunc) {
	for {
		if !m.transition(sub, StateSubscribing) {
			return
		}

		ch, err := m.stream.Subscribe(ctx, sub.table, filter)
		if err != nil {
			if ctx.Err() != nil {
				m.transition(sub, StateClosed)
				return
			}
			if !m.retry(ctx, sub, errors.Wrapf(err, "subscribing to %s", sub.table)) {
				return
			}
			continue
		}

		if !m.transition(sub, StateActive) {
			return
		}
		m.resetAttempts(sub)

		hctx := m.handlerContext()
		for ev := range ch {
			// exactly once per subscription; dedup happens downstream
			m.sink.Handle(hctx, ev)
		}

		if ctx.Err() != nil {
			m.transition(sub, StateClosed)
			return
		}
		if !m.retry(ctx, sub, errors.Wrapf(errChannelClosed, "table %s", sub.table)) {
			return
		}
	}
}

// retry records the failure and waits out the backoff. It returns false
// when the subscription is done for good (closed, or retries exhausted —
// in which case it stays observable in Error state).
func (m *Manager) retry(ctx context.Context, sub *subscription, err error) bool {
	m.mu.Lock()
	if sub.state == StateClosed {
		m.mu.Unlock()
		return false
	}
	sub.state = StateError
	sub.err = err
	sub.attempts++
	attempts := sub.attempts
	m.mu.Unlock()

	m.logger.Warn("subscription failed", err, map[string]interface{}{"table": sub.table, "attempt": attempts})

	if attempts > m.retryMax {
		m.logger.Error("subscription giving up", err, map[string]interface{}{"table": sub.table})
		return false
	}

	select {
	case <-ctx.Done():
		m.transition(sub, StateClosed)
		return false
	case <-time.After(time.Duration(attempts) * m.retryBackoff):
		return true
	}
}

// transition moves the subscription to next unless it has already been
// closed; Closed is terminal and must never be left again.
func (m *Manager) transition(sub *subscription, next State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sub.state == StateClosed {
		return false
	}
	sub.state = next
	if next == StateClosed || next == StateActive {
		sub.err = nil
	}
	return true
}

func (m *Manager) resetAttempts(sub *subscription) {
	m.mu.Lock()
	sub.attempts = 0
	m.mu.Unlock()
}

func (m *Manager) handlerContext() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		return m.session
	}
	return m.base
}
