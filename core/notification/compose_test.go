package notification_test

import (
	"strings"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/notification"
	"github.com/trezcool/darasa/core/stream"
)

var when = time.Date(2021, 3, 15, 9, 30, 0, 0, time.UTC)

func aliceScore(score float64) notification.ScoreFact {
	return notification.ScoreFact{
		ScoreID:     "s1",
		StudentID:   "st1",
		StudentName: "Alice",
		LessonID:    "l1",
		LessonName:  "Algebra",
		SubjectID:   "sub1",
		SubjectName: "Math",
		Score:       score,
		When:        when,
	}
}

func Test_Compose_score(t *testing.T) {
	tests := []struct {
		name        string
		fact        notification.ScoreFact
		op          stream.Operation
		wantTitle   string
		wantInMsg   []string
		wantOutside []string
	}{
		{
			name:      "insert",
			fact:      aliceScore(8),
			op:        stream.OpInsert,
			wantTitle: "New Score for Alice",
			wantInMsg: []string{"Alice", "8", "Math", "Algebra"},
		},
		{
			name:      "update",
			fact:      aliceScore(9.5),
			op:        stream.OpUpdate,
			wantTitle: "Score Updated for Alice",
			wantInMsg: []string{"9.5", "Math"},
		},
		{
			name:      "delete",
			fact:      aliceScore(8),
			op:        stream.OpDelete,
			wantTitle: "Grade Removed for Alice",
			wantInMsg: []string{"8", "Math", "Alice"},
		},
		{
			name: "insert with comment",
			fact: func() notification.ScoreFact {
				f := aliceScore(8)
				f.Comment = null.StringFrom("Great improvement")
				return f
			}(),
			op:        stream.OpInsert,
			wantTitle: "New Score for Alice",
			wantInMsg: []string{"Comment: Great improvement"},
		},
		{
			name: "delete drops comment",
			fact: func() notification.ScoreFact {
				f := aliceScore(8)
				f.Comment = null.StringFrom("Great improvement")
				return f
			}(),
			op:          stream.OpDelete,
			wantTitle:   "Grade Removed for Alice",
			wantOutside: []string{"Comment:"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := notification.Compose(tt.fact, tt.op)
			if err != nil {
				t.Fatalf("Compose() error = %v", err)
			}
			if rec.Title != tt.wantTitle {
				t.Errorf("Title = %q; want %q", rec.Title, tt.wantTitle)
			}
			for _, want := range tt.wantInMsg {
				if !strings.Contains(rec.Message, want) {
					t.Errorf("Message = %q; want it to contain %q", rec.Message, want)
				}
			}
			for _, unwanted := range tt.wantOutside {
				if strings.Contains(rec.Message, unwanted) {
					t.Errorf("Message = %q; must not contain %q", rec.Message, unwanted)
				}
			}
			if rec.Category != notification.CategoryGrade {
				t.Errorf("Category = %q; want %q", rec.Category, notification.CategoryGrade)
			}
			if !rec.CreatedAt.Equal(when) {
				t.Errorf("CreatedAt = %v; want the commit time %v", rec.CreatedAt, when)
			}
			if rec.Read {
				t.Errorf("new record already read")
			}
		})
	}
}

func Test_Compose_attendance(t *testing.T) {
	fact := notification.AttendanceFact{
		EntryID:     "a1",
		StudentID:   "st1",
		StudentName: "Juma",
		LessonID:    "l1",
		LessonName:  "Sarufi",
		SubjectID:   "sub2",
		SubjectName: "Swahili",
		Status:      "absent",
		Note:        null.StringFrom("no show"),
		When:        when,
	}

	rec, err := notification.Compose(fact, stream.OpInsert)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if rec.Title != "Attendance Recorded for Juma" {
		t.Errorf("Title = %q", rec.Title)
	}
	for _, want := range []string{"Juma", "absent", "Swahili", "Note: no show"} {
		if !strings.Contains(rec.Message, want) {
			t.Errorf("Message = %q; want it to contain %q", rec.Message, want)
		}
	}
	if rec.Category != notification.CategoryAttendance {
		t.Errorf("Category = %q", rec.Category)
	}
}

func Test_Compose_announcement(t *testing.T) {
	fact := notification.AnnouncementFact{
		AnnouncementID: "an1",
		Title:          "Sports Day",
		Body:           strings.Repeat("All students must attend. ", 10),
		AuthorName:     "Principal",
		When:           when,
	}

	rec, err := notification.Compose(fact, stream.OpInsert)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if rec.Title != "New Announcement: Sports Day" {
		t.Errorf("Title = %q", rec.Title)
	}
	if len(rec.Message) > 200 {
		t.Errorf("Message not summarized, len = %d", len(rec.Message))
	}
	if !strings.Contains(rec.Message, "Principal") {
		t.Errorf("Message = %q; want author attribution", rec.Message)
	}

	rec, err = notification.Compose(fact, stream.OpDelete)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if rec.Title != "Announcement Removed: Sports Day" {
		t.Errorf("Title = %q", rec.Title)
	}
}

func Test_Compose_deterministicID(t *testing.T) {
	r1, err := notification.Compose(aliceScore(8), stream.OpInsert)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	r2, err := notification.Compose(aliceScore(8), stream.OpInsert)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if r1.ID != r2.ID {
		t.Errorf("same fact produced different ids: %q vs %q", r1.ID, r2.ID)
	}
	if want := notification.DeriveID("scores", "s1", stream.OpInsert); r1.ID != want {
		t.Errorf("ID = %q; want DeriveID result %q", r1.ID, want)
	}

	// a different operation on the same row is a different notification
	r3, err := notification.Compose(aliceScore(8), stream.OpUpdate)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if r3.ID == r1.ID {
		t.Errorf("insert and update share an id")
	}
}

func Test_Compose_meta(t *testing.T) {
	rec, err := notification.Compose(aliceScore(8), stream.OpInsert)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	for key, want := range map[string]string{
		"source_table":  "scores",
		"source_row_id": "s1",
		"op":            "INSERT",
		"student_id":    "st1",
		"lesson_id":     "l1",
		"subject_id":    "sub1",
	} {
		if got := rec.Meta[key]; got != want {
			t.Errorf("Meta[%q] = %q; want %q", key, got, want)
		}
	}
}
