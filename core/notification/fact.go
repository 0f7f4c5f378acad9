package notification

import (
	"time"

	"github.com/volatiletech/null/v8"
)

type (
	// Fact is the enriched, human-meaningful form of a raw change event.
	// The union is closed: exactly one fact type per watched table, built
	// once per event and immutable afterwards.
	Fact interface {
		Category() string
		// RowID is the primary key of the source row the fact describes.
		RowID() string
		// Meta is the correlation metadata carried onto the record.
		Meta() map[string]string

		fact()
	}

	ScoreFact struct {
		ScoreID     string
		StudentID   string
		StudentName string
		LessonID    string
		LessonName  string
		SubjectID   string
		SubjectName string
		Score       float64
		Comment     null.String
		When        time.Time
	}

	AttendanceFact struct {
		EntryID     string
		StudentID   string
		StudentName string
		LessonID    string
		LessonName  string
		SubjectID   string
		SubjectName string
		Status      string
		Note        null.String
		When        time.Time
	}

	AnnouncementFact struct {
		AnnouncementID string
		Title          string
		Body           string
		AuthorName     string
		Audience       null.String
		When           time.Time
	}
)

func (f ScoreFact) Category() string { return CategoryGrade }
func (f ScoreFact) RowID() string    { return f.ScoreID }
func (f ScoreFact) Meta() map[string]string {
	return map[string]string{
		"student_id": f.StudentID,
		"lesson_id":  f.LessonID,
		"subject_id": f.SubjectID,
	}
}
func (f ScoreFact) fact() {}

func (f AttendanceFact) Category() string { return CategoryAttendance }
func (f AttendanceFact) RowID() string    { return f.EntryID }
func (f AttendanceFact) Meta() map[string]string {
	return map[string]string{
		"student_id": f.StudentID,
		"lesson_id":  f.LessonID,
		"subject_id": f.SubjectID,
	}
}
func (f AttendanceFact) fact() {}

func (f AnnouncementFact) Category() string { return CategoryAnnouncement }
func (f AnnouncementFact) RowID() string    { return f.AnnouncementID }
func (f AnnouncementFact) Meta() map[string]string {
	return map[string]string{"announcement_id": f.AnnouncementID}
}
func (f AnnouncementFact) fact() {}

// factTime is the commit time the fact was built from; records are
// ordered by it, not by arrival order.
func factTime(f Fact) time.Time {
	switch f := f.(type) {
	case ScoreFact:
		return f.When.UTC()
	case AttendanceFact:
		return f.When.UTC()
	case AnnouncementFact:
		return f.When.UTC()
	}
	return time.Time{}
}
