package school

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

var (
	// errors
	ErrStudentNotFound = errors.New("student not found")
	ErrLessonNotFound  = errors.New("lesson not found")
	ErrSubjectNotFound = errors.New("subject not found")
)

type (
	// Student is the reference row notifications are personalized with.
	Student struct {
		ID        string    `db:"id" json:"id"`
		Name      string    `db:"name" json:"name"`
		ClassName string    `db:"class_name" json:"class_name"`
		ParentID  null.String `db:"parent_id" json:"parent_id,omitempty"`
		CreatedAt time.Time `db:"created_at" json:"created_at"`
	}

	// Lesson links a subject to a teaching slot; scores and attendance
	// reference lessons, not subjects, so display names need a hop.
	Lesson struct {
		ID        string    `db:"id" json:"id"`
		Name      string    `db:"name" json:"name"`
		SubjectID string    `db:"subject_id" json:"subject_id"`
		TeacherID null.String `db:"teacher_id" json:"teacher_id,omitempty"`
		CreatedAt time.Time `db:"created_at" json:"created_at"`
	}

	Subject struct {
		ID        string    `db:"id" json:"id"`
		Code      string    `db:"code" json:"code"`
		Name      string    `db:"name" json:"name"`
		CreatedAt time.Time `db:"created_at" json:"created_at"`
	}

	// Lookup resolves reference rows by primary key. Implementations hit
	// the records database; a missing row is reported with the sentinel
	// errors above, any other failure is a transport error.
	Lookup interface {
		StudentByID(ctx context.Context, id string) (Student, error)
		LessonByID(ctx context.Context, id string) (Lesson, error)
		SubjectByID(ctx context.Context, id string) (Subject, error)
	}
)
