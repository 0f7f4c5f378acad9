package notification

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/stream"
)

// EnrichmentError marks an event that could not be turned into a complete
// fact (unknown table, undecodable row, missing related rows). Such events
// are dropped; a notification must never show partial relational data.
type EnrichmentError struct {
	Reason string
	Err    error
}

func (e *EnrichmentError) Error() string {
	if e.Err != nil {
		return "enrichment failed: " + e.Reason + ": " + e.Err.Error()
	}
	return "enrichment failed: " + e.Reason
}

func (e *EnrichmentError) Unwrap() error { return e.Err }

// IsEnrichmentError reports whether err is an expected enrichment drop as
// opposed to a programming defect.
func IsEnrichmentError(err error) bool {
	var e *EnrichmentError
	return errors.As(err, &e)
}

func enrichErr(reason string, err error) error {
	return &EnrichmentError{Reason: reason, Err: err}
}

// Enricher turns raw change events into complete facts by resolving
// foreign keys against the records database.
type Enricher struct {
	lookup school.Lookup
}

func NewEnricher(lookup school.Lookup) *Enricher {
	return &Enricher{lookup: lookup}
}

// Enrich builds the fact for ev. Inserts and updates resolve related rows
// from the After snapshot, deletes from Before. Lookups for independent
// entities run concurrently; if any related row is gone the whole
// enrichment fails, never a partial fact.
func (e *Enricher) Enrich(ctx context.Context, ev stream.ChangeEvent) (Fact, error) {
	snap, err := ev.Snapshot()
	if err != nil {
		return nil, enrichErr("no row snapshot", err)
	}

	switch ev.Table {
	case school.TableScores:
		row, err := school.DecodeScoreRow(snap)
		if err != nil {
			return nil, enrichErr("decoding scores row", err)
		}
		student, lesson, subject, err := e.resolveRefs(ctx, row.StudentID, row.LessonID)
		if err != nil {
			return nil, err
		}
		return ScoreFact{
			ScoreID:     row.ID,
			StudentID:   student.ID,
			StudentName: student.Name,
			LessonID:    lesson.ID,
			LessonName:  lesson.Name,
			SubjectID:   subject.ID,
			SubjectName: subject.Name,
			Score:       row.Score,
			Comment:     row.Comment,
			When:        ev.CommitTime,
		}, nil

	case school.TableAttendance:
		row, err := school.DecodeAttendanceRow(snap)
		if err != nil {
			return nil, enrichErr("decoding attendance row", err)
		}
		student, lesson, subject, err := e.resolveRefs(ctx, row.StudentID, row.LessonID)
		if err != nil {
			return nil, err
		}
		return AttendanceFact{
			EntryID:     row.ID,
			StudentID:   student.ID,
			StudentName: student.Name,
			LessonID:    lesson.ID,
			LessonName:  lesson.Name,
			SubjectID:   subject.ID,
			SubjectName: subject.Name,
			Status:      row.Status,
			Note:        row.Note,
			When:        ev.CommitTime,
		}, nil

	case school.TableAnnouncements:
		// announcements are self-contained, no reference lookups
		row, err := school.DecodeAnnouncementRow(snap)
		if err != nil {
			return nil, enrichErr("decoding announcements row", err)
		}
		return AnnouncementFact{
			AnnouncementID: row.ID,
			Title:          row.Title,
			Body:           row.Body,
			AuthorName:     row.AuthorName,
			Audience:       row.Audience,
			When:           ev.CommitTime,
		}, nil
	}

	return nil, enrichErr("unwatched table "+ev.Table, nil)
}

// resolveRefs fetches the student and the lesson+subject pair, the two
// independent branches running concurrently. One round trip per entity
// type: student, lesson, then the lesson's subject.
func (e *Enricher) resolveRefs(ctx context.Context, studentID, lessonID string) (school.Student, school.Lesson, school.Subject, error) {
	var (
		student school.Student
		lesson  school.Lesson
		subject school.Subject

		studentErr error
		lessonErr  error
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		student, studentErr = e.lookup.StudentByID(ctx, studentID)
	}()

	if lesson, lessonErr = e.lookup.LessonByID(ctx, lessonID); lessonErr == nil {
		subject, lessonErr = e.lookup.SubjectByID(ctx, lesson.SubjectID)
	}
	<-done

	if studentErr != nil {
		return school.Student{}, school.Lesson{}, school.Subject{}, enrichErr("resolving student "+studentID, studentErr)
	}
	if lessonErr != nil {
		return school.Student{}, school.Lesson{}, school.Subject{}, enrichErr("resolving lesson "+lessonID, lessonErr)
	}
	return student, lesson, subject, nil
}
