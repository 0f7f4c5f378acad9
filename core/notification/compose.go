package notification

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/stream"
)

// ErrCompose marks an unmappable (fact, operation) pair. Given a valid
// fact this cannot happen; it is logged as a programming defect.
var ErrCompose = errors.New("no notification template for fact/operation")

// Compose maps an enriched fact and the operation that produced it to a
// notification record. Pure and deterministic: same fact + operation,
// same wording, same derived id. No network or storage access here.
func Compose(fact Fact, op stream.Operation) (Record, error) {
	var title, message, table string

	switch f := fact.(type) {
	case ScoreFact:
		table = "scores"
		score := formatScore(f.Score)
		switch op {
		case stream.OpInsert:
			title = "New Score for " + f.StudentName
			message = fmt.Sprintf("%s scored %s in %s (%s).", f.StudentName, score, f.SubjectName, f.LessonName)
		case stream.OpUpdate:
			title = "Score Updated for " + f.StudentName
			message = fmt.Sprintf("%s's score in %s (%s) is now %s.", f.StudentName, f.SubjectName, f.LessonName, score)
		case stream.OpDelete:
			title = "Grade Removed for " + f.StudentName
			message = fmt.Sprintf("A score of %s in %s was removed for %s.", score, f.SubjectName, f.StudentName)
		}
		if f.Comment.Valid && f.Comment.String != "" && op != stream.OpDelete {
			message += " Comment: " + f.Comment.String
		}

	case AttendanceFact:
		table = "attendance"
		switch op {
		case stream.OpInsert:
			title = "Attendance Recorded for " + f.StudentName
			message = fmt.Sprintf("%s was marked %s in %s (%s).", f.StudentName, f.Status, f.SubjectName, f.LessonName)
		case stream.OpUpdate:
			title = "Attendance Updated for " + f.StudentName
			message = fmt.Sprintf("%s's attendance in %s (%s) was changed to %s.", f.StudentName, f.SubjectName, f.LessonName, f.Status)
		case stream.OpDelete:
			title = "Attendance Entry Removed for " + f.StudentName
			message = fmt.Sprintf("An attendance entry (%s) in %s was removed for %s.", f.Status, f.SubjectName, f.StudentName)
		}
		if f.Note.Valid && f.Note.String != "" && op != stream.OpDelete {
			message += " Note: " + f.Note.String
		}

	case AnnouncementFact:
		table = "announcements"
		switch op {
		case stream.OpInsert:
			title = "New Announcement: " + f.Title
			message = summarize(f.Body)
			if f.AuthorName != "" {
				message += " (" + f.AuthorName + ")"
			}
		case stream.OpUpdate:
			title = "Announcement Updated: " + f.Title
			message = summarize(f.Body)
		case stream.OpDelete:
			title = "Announcement Removed: " + f.Title
			message = "This announcement was withdrawn."
		}

	default:
		return Record{}, errors.Wrapf(ErrCompose, "unknown fact type %T", fact)
	}

	if title == "" {
		return Record{}, errors.Wrapf(ErrCompose, "fact %T, operation %q", fact, op)
	}

	meta := fact.Meta()
	meta["source_table"] = table
	meta["source_row_id"] = fact.RowID()
	meta["op"] = string(op)

	return Record{
		ID:       DeriveID(table, fact.RowID(), op),
		Title:    title,
		Message:  message,
		Category: fact.Category(),
		// record time orders the store; commit time, not arrival time
		CreatedAt: factTime(fact),
		Meta:      meta,
	}, nil
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

const summaryLimit = 140

func summarize(body string) string {
	body = strings.TrimSpace(body)
	if len(body) <= summaryLimit {
		return body
	}
	return strings.TrimSpace(body[:summaryLimit]) + "…"
}
