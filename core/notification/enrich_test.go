package notification_test

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/darasa/core/notification"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/stream"
	"github.com/trezcool/darasa/storage/database/dummy"
	"github.com/trezcool/darasa/tests"
)

func seededLookup() *dummydb.Lookup {
	lookup := dummydb.NewLookup()
	lookup.AddStudent(school.Student{ID: "st1", Name: "Alice"})
	lookup.AddSubject(school.Subject{ID: "sub1", Name: "Math"})
	lookup.AddLesson(school.Lesson{ID: "l1", Name: "Algebra", SubjectID: "sub1"})
	return lookup
}

func Test_Enricher_score(t *testing.T) {
	enricher := notification.NewEnricher(seededLookup())
	ev := testutil.ScoreEvent(t, stream.OpInsert, "s1", "st1", "l1", 8, when)

	fact, err := enricher.Enrich(context.Background(), ev)
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	sf, ok := fact.(notification.ScoreFact)
	if !ok {
		t.Fatalf("Enrich() = %T; want ScoreFact", fact)
	}
	if sf.StudentName != "Alice" || sf.LessonName != "Algebra" || sf.SubjectName != "Math" {
		t.Errorf("names not resolved: %+v", sf)
	}
	if sf.Score != 8 {
		t.Errorf("Score = %v; want 8", sf.Score)
	}
	if !sf.When.Equal(when) {
		t.Errorf("When = %v; want %v", sf.When, when)
	}
}

func Test_Enricher_deleteReadsBefore(t *testing.T) {
	enricher := notification.NewEnricher(seededLookup())
	ev := testutil.ScoreEvent(t, stream.OpDelete, "s1", "st1", "l1", 8, when)
	if ev.After != nil {
		t.Fatalf("delete event unexpectedly carries After")
	}

	fact, err := enricher.Enrich(context.Background(), ev)
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	if sf := fact.(notification.ScoreFact); sf.StudentName != "Alice" {
		t.Errorf("StudentName = %q; want Alice", sf.StudentName)
	}
}

func Test_Enricher_failures(t *testing.T) {
	lookup := seededLookup()
	enricher := notification.NewEnricher(lookup)
	ctx := context.Background()

	tests := []struct {
		name string
		ev   stream.ChangeEvent
	}{
		{name: "unknown student", ev: testutil.ScoreEvent(t, stream.OpInsert, "s1", "ghost", "l1", 8, when)},
		{name: "unknown lesson", ev: testutil.ScoreEvent(t, stream.OpInsert, "s1", "st1", "ghost", 8, when)},
		{name: "unwatched table", ev: stream.ChangeEvent{Table: "students", Op: stream.OpInsert, After: []byte(`{"id":"x"}`)}},
		{name: "no snapshot", ev: stream.ChangeEvent{Table: school.TableScores, Op: stream.OpInsert}},
		{name: "bad row shape", ev: stream.ChangeEvent{Table: school.TableScores, Op: stream.OpInsert, After: []byte(`{"id":"s1"}`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fact, err := enricher.Enrich(ctx, tt.ev)
			if err == nil {
				t.Fatalf("Enrich() error = nil; want enrichment failure")
			}
			if !notification.IsEnrichmentError(err) {
				t.Errorf("IsEnrichmentError() = false for %v", err)
			}
			if fact != nil {
				t.Errorf("Enrich() fact = %+v; want nil, partial facts are forbidden", fact)
			}
		})
	}
}

// The lesson disappearing between the event and the lookup fails the
// whole enrichment; no notification with a blank subject ever forms.
func Test_Enricher_concurrentDeletion(t *testing.T) {
	lookup := seededLookup()
	enricher := notification.NewEnricher(lookup)
	lookup.RemoveLesson("l1")

	_, err := enricher.Enrich(context.Background(), testutil.ScoreEvent(t, stream.OpInsert, "s1", "st1", "l1", 8, when))
	if !notification.IsEnrichmentError(err) {
		t.Fatalf("Enrich() error = %v; want enrichment failure", err)
	}
}

func Test_Enricher_announcementNeedsNoLookups(t *testing.T) {
	enricher := notification.NewEnricher(dummydb.NewLookup()) // empty on purpose
	ev := testutil.AnnouncementEvent(t, stream.OpInsert, "an1", "Sports Day", "Field events all day.", "Principal", "", time.Now())

	fact, err := enricher.Enrich(context.Background(), ev)
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	af, ok := fact.(notification.AnnouncementFact)
	if !ok {
		t.Fatalf("Enrich() = %T; want AnnouncementFact", fact)
	}
	if af.Title != "Sports Day" || af.AuthorName != "Principal" {
		t.Errorf("AnnouncementFact = %+v", af)
	}
}

func Test_Enricher_attendance(t *testing.T) {
	enricher := notification.NewEnricher(seededLookup())
	ev := testutil.AttendanceEvent(t, stream.OpInsert, "a1", "st1", "l1", school.AttendanceLate, when)

	fact, err := enricher.Enrich(context.Background(), ev)
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	af := fact.(notification.AttendanceFact)
	if af.Status != school.AttendanceLate || af.SubjectName != "Math" {
		t.Errorf("AttendanceFact = %+v", af)
	}
}
