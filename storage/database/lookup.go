package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/school"
)

// LookupRepository resolves reference rows with point queries against the
// records database.
type LookupRepository struct {
	db *sqlx.DB
}

var _ school.Lookup = (*LookupRepository)(nil)

func NewLookupRepository(db *sql.DB) *LookupRepository {
	return &LookupRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *LookupRepository) StudentByID(ctx context.Context, id string) (school.Student, error) {
	var s school.Student
	err := repo.db.GetContext(ctx, &s,
		`SELECT id, name, class_name, parent_id, created_at FROM students WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return school.Student{}, school.ErrStudentNotFound
	}
	if err != nil {
		return school.Student{}, errors.Wrapf(err, "getting student %s", id)
	}
	return s, nil
}

func (repo *LookupRepository) LessonByID(ctx context.Context, id string) (school.Lesson, error) {
	var l school.Lesson
	err := repo.db.GetContext(ctx, &l,
		`SELECT id, name, subject_id, teacher_id, created_at FROM lessons WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return school.Lesson{}, school.ErrLessonNotFound
	}
	if err != nil {
		return school.Lesson{}, errors.Wrapf(err, "getting lesson %s", id)
	}
	return l, nil
}

func (repo *LookupRepository) SubjectByID(ctx context.Context, id string) (school.Subject, error) {
	var s school.Subject
	err := repo.db.GetContext(ctx, &s,
		`SELECT id, code, name, created_at FROM subjects WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return school.Subject{}, school.ErrSubjectNotFound
	}
	if err != nil {
		return school.Subject{}, errors.Wrapf(err, "getting subject %s", id)
	}
	return s, nil
}
