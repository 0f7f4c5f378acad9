package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Stable ids so re-seeding reference rows is a no-op.
var (
	seedSubjectMathID    = "6f1f64e0-0000-4000-8000-000000000001"
	seedSubjectSwahiliID = "6f1f64e0-0000-4000-8000-000000000002"
	seedStudentAliceID   = "6f1f64e0-0000-4000-8000-000000000101"
	seedStudentJumaID    = "6f1f64e0-0000-4000-8000-000000000102"
	seedLessonAlgebraID  = "6f1f64e0-0000-4000-8000-000000000201"
	seedLessonSarufiID   = "6f1f64e0-0000-4000-8000-000000000202"
)

// seed inserts reference rows for local development. Reference rows are
// idempotent; the trailing score and announcement are fresh every run so
// the change triggers have something to publish.
func (cli *commandLine) seed() error {
	for _, q := range []struct {
		desc  string
		query string
		args  []interface{}
	}{
		{
			desc:  "subject Mathematics",
			query: `INSERT INTO subjects (id, code, name) VALUES ($1, 'MATH', 'Mathematics') ON CONFLICT (id) DO NOTHING`,
			args:  []interface{}{seedSubjectMathID},
		},
		{
			desc:  "subject Swahili",
			query: `INSERT INTO subjects (id, code, name) VALUES ($1, 'SWA', 'Swahili') ON CONFLICT (id) DO NOTHING`,
			args:  []interface{}{seedSubjectSwahiliID},
		},
		{
			desc:  "student Alice",
			query: `INSERT INTO students (id, name, class_name) VALUES ($1, 'Alice Mwangi', 'Form 2A') ON CONFLICT (id) DO NOTHING`,
			args:  []interface{}{seedStudentAliceID},
		},
		{
			desc:  "student Juma",
			query: `INSERT INTO students (id, name, class_name) VALUES ($1, 'Juma Otieno', 'Form 2A') ON CONFLICT (id) DO NOTHING`,
			args:  []interface{}{seedStudentJumaID},
		},
		{
			desc:  "lesson Algebra",
			query: `INSERT INTO lessons (id, name, subject_id) VALUES ($1, 'Algebra', $2) ON CONFLICT (id) DO NOTHING`,
			args:  []interface{}{seedLessonAlgebraID, seedSubjectMathID},
		},
		{
			desc:  "lesson Sarufi",
			query: `INSERT INTO lessons (id, name, subject_id) VALUES ($1, 'Sarufi', $2) ON CONFLICT (id) DO NOTHING`,
			args:  []interface{}{seedLessonSarufiID, seedSubjectSwahiliID},
		},
		{
			desc:  "score for Alice",
			query: `INSERT INTO scores (id, student_id, lesson_id, score, comment) VALUES ($1, $2, $3, 8, 'Seeded score')`,
			args:  []interface{}{uuid.NewString(), seedStudentAliceID, seedLessonAlgebraID},
		},
		{
			desc:  "announcement",
			query: `INSERT INTO announcements (id, title, body, author_name, audience) VALUES ($1, 'Karibu', 'Seed data loaded.', 'Seeder', NULL)`,
			args:  []interface{}{uuid.NewString()},
		},
	} {
		if _, err := cli.db.Exec(q.query, q.args...); err != nil {
			return errors.Wrapf(err, "seeding %s", q.desc)
		}
	}

	fmt.Println("seed data loaded")
	return nil
}
