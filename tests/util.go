package testutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/trezcool/darasa/core/stream"
)

// Logger is a no-op core.Logger for tests.
type Logger struct{}

func (Logger) Enable(bool)                  {}
func (Logger) Debug(string, ...interface{}) {}
func (Logger) Info(string, ...interface{})  {}
func (Logger) Warn(string, ...interface{})  {}
func (Logger) Error(string, ...interface{}) {}
func (Logger) Fatal(string, ...interface{}) {}

func mustMarshal(t *testing.T, obj interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("mustMarshal(): %v", err)
	}
	return raw
}

// ScoreEvent builds a scores change event carrying the snapshot on the
// side the operation dictates (Before for deletes, After otherwise).
func ScoreEvent(t *testing.T, op stream.Operation, id, studentID, lessonID string, score float64, commit time.Time) stream.ChangeEvent {
	t.Helper()
	snap := mustMarshal(t, map[string]interface{}{
		"id":         id,
		"student_id": studentID,
		"lesson_id":  lessonID,
		"score":      score,
	})
	return eventWithSnapshot("scores", op, snap, commit)
}

func AttendanceEvent(t *testing.T, op stream.Operation, id, studentID, lessonID, status string, commit time.Time) stream.ChangeEvent {
	t.Helper()
	snap := mustMarshal(t, map[string]interface{}{
		"id":         id,
		"student_id": studentID,
		"lesson_id":  lessonID,
		"status":     status,
	})
	return eventWithSnapshot("attendance", op, snap, commit)
}

func AnnouncementEvent(t *testing.T, op stream.Operation, id, title, body, author, audience string, commit time.Time) stream.ChangeEvent {
	t.Helper()
	row := map[string]interface{}{
		"id":          id,
		"title":       title,
		"body":        body,
		"author_name": author,
	}
	if audience != "" {
		row["audience"] = audience
	}
	return eventWithSnapshot("announcements", op, mustMarshal(t, row), commit)
}

func eventWithSnapshot(table string, op stream.Operation, snap json.RawMessage, commit time.Time) stream.ChangeEvent {
	ev := stream.ChangeEvent{
		Table:      table,
		Op:         op,
		CommitTime: commit,
	}
	if op == stream.OpDelete {
		ev.Before = snap
	} else {
		ev.After = snap
	}
	return ev
}

// WaitFor polls cond until it holds or the deadline passes.
func WaitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}
