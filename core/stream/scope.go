package stream

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
)

// Scope is the set of rows the current session is interested in.
// Admins and teachers watch the whole tenant; students and parents only
// rows concerning their student ids. The zero value means "no session".
type Scope struct {
	Role string
	// StudentIDs restricts scores/attendance to these students; empty
	// means unrestricted (tenant-wide roles).
	StudentIDs []string
}

// ScopeOf derives the subscription scope from an authenticated identity.
func ScopeOf(usr user.User) Scope {
	switch {
	case usr.IsAdmin():
		return Scope{Role: user.RoleAdmin}
	case usr.IsTeacher():
		return Scope{Role: user.RoleTeacher}
	case usr.IsParent():
		return Scope{Role: user.RoleParent, StudentIDs: usr.Children}
	case usr.IsStudent():
		return Scope{Role: user.RoleStudent, StudentIDs: []string{usr.ID}}
	}
	return Scope{}
}

// Empty reports whether no session is active; an empty scope requires
// zero subscriptions.
func (s Scope) Empty() bool { return s.Role == "" }

// Signature is a deterministic identity for the scope, used to key
// subscriptions and detect staleness across reconciles.
func (s Scope) Signature() string {
	if s.Empty() {
		return ""
	}
	ids := make([]string, len(s.StudentIDs))
	copy(ids, s.StudentIDs)
	sort.Strings(ids)
	return s.Role + "|" + strings.Join(ids, ",")
}

// Filter returns the row predicate for one watched table, or nil when the
// scope admits every row of that table.
func (s Scope) Filter(table string) FilterFunc {
	switch table {
	case school.TableScores, school.TableAttendance:
		if len(s.StudentIDs) == 0 {
			return nil
		}
		allowed := make(map[string]struct{}, len(s.StudentIDs))
		for _, id := range s.StudentIDs {
			allowed[id] = struct{}{}
		}
		return func(ev ChangeEvent) bool {
			snap, err := ev.Snapshot()
			if err != nil {
				return false
			}
			var row struct {
				StudentID string `json:"student_id"`
			}
			if err := json.Unmarshal(snap, &row); err != nil {
				return false
			}
			_, ok := allowed[row.StudentID]
			return ok
		}
	case school.TableAnnouncements:
		role := s.Role
		return func(ev ChangeEvent) bool {
			snap, err := ev.Snapshot()
			if err != nil {
				return false
			}
			var row struct {
				Audience string `json:"audience"`
			}
			if err := json.Unmarshal(snap, &row); err != nil {
				return false
			}
			return row.Audience == "" || strings.HasPrefix(role, row.Audience)
		}
	}
	return nil
}
