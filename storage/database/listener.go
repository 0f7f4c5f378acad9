package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/stream"
)

const (
	// notifyChannelPrefix + table name = the pg_notify channel the
	// migration triggers publish change payloads on.
	notifyChannelPrefix = "darasa_"

	listenerMinReconnect = 2 * time.Second
	listenerMaxReconnect = time.Minute
)

// ChangeStream delivers row-level change events over Postgres
// LISTEN/NOTIFY. Each subscription holds its own dedicated listener
// connection; pq.Listener transparently reconnects on connection loss.
type ChangeStream struct {
	connInfo string
	logger   core.Logger
}

var _ stream.ChangeStream = (*ChangeStream)(nil)

func NewChangeStream(conf *core.Config, logger core.Logger) *ChangeStream {
	return &ChangeStream{
		connInfo: ConnString(conf),
		logger:   logger,
	}
}

// Subscribe opens a LISTEN channel for one table. The returned channel
// delivers events in commit order until ctx is cancelled or the listener
// fails for good; either way it is closed.
func (cs *ChangeStream) Subscribe(ctx context.Context, table string, filter stream.FilterFunc) (<-chan stream.ChangeEvent, error) {
	l := pq.NewListener(cs.connInfo, listenerMinReconnect, listenerMaxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			cs.logger.Warn("change listener event", err, map[string]interface{}{"table": table})
		}
	})
	if err := l.Listen(notifyChannelPrefix + table); err != nil {
		_ = l.Close()
		return nil, errors.Wrapf(err, "listening on %s%s", notifyChannelPrefix, table)
	}

	ch := make(chan stream.ChangeEvent, 16)
	go func() {
		defer close(ch)
		defer func() { _ = l.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-l.Notify:
				if !ok {
					return
				}
				if n == nil {
					// reconnect marker; events in between are lost but the
					// channel itself is healthy again
					continue
				}
				var ev stream.ChangeEvent
				if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
					cs.logger.Warn("undecodable change payload", err, map[string]interface{}{"table": table})
					continue
				}
				if ev.Table != table {
					continue
				}
				if filter != nil && !filter(ev) {
					continue
				}
				select {
				case ch <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}
