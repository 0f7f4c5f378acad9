package dummydb

import (
	"context"
	"sync"

	"github.com/trezcool/darasa/core/school"
)

// Lookup is an in-memory school.Lookup backed by plain maps.
type Lookup struct {
	mu       sync.RWMutex
	students map[string]school.Student
	lessons  map[string]school.Lesson
	subjects map[string]school.Subject
}

var _ school.Lookup = (*Lookup)(nil)

func NewLookup() *Lookup {
	return &Lookup{
		students: make(map[string]school.Student),
		lessons:  make(map[string]school.Lesson),
		subjects: make(map[string]school.Subject),
	}
}

func (l *Lookup) AddStudent(s school.Student) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.students[s.ID] = s
}

func (l *Lookup) AddLesson(ls school.Lesson) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lessons[ls.ID] = ls
}

func (l *Lookup) AddSubject(s school.Subject) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subjects[s.ID] = s
}

func (l *Lookup) RemoveLesson(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.lessons, id)
}

func (l *Lookup) StudentByID(_ context.Context, id string) (school.Student, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if s, ok := l.students[id]; ok {
		return s, nil
	}
	return school.Student{}, school.ErrStudentNotFound
}

func (l *Lookup) LessonByID(_ context.Context, id string) (school.Lesson, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if ls, ok := l.lessons[id]; ok {
		return ls, nil
	}
	return school.Lesson{}, school.ErrLessonNotFound
}

func (l *Lookup) SubjectByID(_ context.Context, id string) (school.Subject, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if s, ok := l.subjects[id]; ok {
		return s, nil
	}
	return school.Subject{}, school.ErrSubjectNotFound
}
