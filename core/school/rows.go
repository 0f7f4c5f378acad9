package school

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

// Watched table names, as emitted by the change stream.
const (
	TableScores        = "scores"
	TableAttendance    = "attendance"
	TableAnnouncements = "announcements"
)

// Attendance statuses
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
	AttendanceExcused = "excused"
)

var ErrBadRowShape = errors.New("row payload does not match table schema")

type (
	// ScoreRow is a raw "scores" row snapshot from a change event.
	ScoreRow struct {
		ID        string      `json:"id"`
		StudentID string      `json:"student_id"`
		LessonID  string      `json:"lesson_id"`
		Score     float64     `json:"score"`
		Comment   null.String `json:"comment"`
		CreatedAt time.Time   `json:"created_at"`
	}

	// AttendanceRow is a raw "attendance" row snapshot from a change event.
	AttendanceRow struct {
		ID        string      `json:"id"`
		StudentID string      `json:"student_id"`
		LessonID  string      `json:"lesson_id"`
		Status    string      `json:"status"`
		Note      null.String `json:"note"`
		Date      time.Time   `json:"date"`
	}

	// AnnouncementRow is a raw "announcements" row snapshot from a change
	// event. Author display name is denormalized on the row by the records
	// backend, so announcements need no reference lookups.
	AnnouncementRow struct {
		ID         string      `json:"id"`
		Title      string      `json:"title"`
		Body       string      `json:"body"`
		AuthorName string      `json:"author_name"`
		Audience   null.String `json:"audience"` // role prefix; empty = everyone
		CreatedAt  time.Time   `json:"created_at"`
	}
)

// DecodeScoreRow decodes a scores row snapshot, rejecting payloads that do
// not carry the required columns.
func DecodeScoreRow(raw json.RawMessage) (ScoreRow, error) {
	var row ScoreRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return ScoreRow{}, errors.Wrap(ErrBadRowShape, err.Error())
	}
	if row.ID == "" || row.StudentID == "" || row.LessonID == "" {
		return ScoreRow{}, errors.Wrap(ErrBadRowShape, "scores: missing id, student_id or lesson_id")
	}
	return row, nil
}

// DecodeAttendanceRow decodes an attendance row snapshot, rejecting payloads
// that do not carry the required columns.
func DecodeAttendanceRow(raw json.RawMessage) (AttendanceRow, error) {
	var row AttendanceRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return AttendanceRow{}, errors.Wrap(ErrBadRowShape, err.Error())
	}
	if row.ID == "" || row.StudentID == "" || row.LessonID == "" || row.Status == "" {
		return AttendanceRow{}, errors.Wrap(ErrBadRowShape, "attendance: missing id, student_id, lesson_id or status")
	}
	switch row.Status {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
	default:
		return AttendanceRow{}, errors.Wrapf(ErrBadRowShape, "attendance: unknown status %q", row.Status)
	}
	return row, nil
}

// DecodeAnnouncementRow decodes an announcements row snapshot, rejecting
// payloads that do not carry the required columns.
func DecodeAnnouncementRow(raw json.RawMessage) (AnnouncementRow, error) {
	var row AnnouncementRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return AnnouncementRow{}, errors.Wrap(ErrBadRowShape, err.Error())
	}
	if row.ID == "" || row.Title == "" {
		return AnnouncementRow{}, errors.Wrap(ErrBadRowShape, "announcements: missing id or title")
	}
	return row, nil
}

// IsWatchedTable reports whether the change stream knows how to decode
// rows of the given table.
func IsWatchedTable(table string) bool {
	switch table {
	case TableScores, TableAttendance, TableAnnouncements:
		return true
	}
	return false
}

// WatchedTables lists every table the notification core subscribes to.
func WatchedTables() []string {
	return []string{TableScores, TableAttendance, TableAnnouncements}
}
