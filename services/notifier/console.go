package notifysvc

import (
	"log"
	"sync"

	"github.com/trezcool/darasa/core/notification"
)

// ConsoleSink is the dev-mode delivery sink: records land on stdout
// instead of a device notification tray.
type ConsoleSink struct {
	std *log.Logger
}

var _ notification.Sink = (*ConsoleSink)(nil)

func NewConsoleSink(std *log.Logger) *ConsoleSink {
	return &ConsoleSink{std: std}
}

func (s *ConsoleSink) Notify(rec notification.Record) {
	s.std.Printf("[%s] %s: %s", rec.Category, rec.Title, rec.Message)
}

// SinkMock records delivered notifications for tests.
type SinkMock struct {
	mu       sync.Mutex
	Received []notification.Record
}

var _ notification.Sink = (*SinkMock)(nil)

func (s *SinkMock) Notify(rec notification.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Received = append(s.Received, rec)
}

func (s *SinkMock) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Received)
}
