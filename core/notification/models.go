package notification

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/trezcool/darasa/core/stream"
)

// Categories
const (
	CategoryGrade        = "grade"
	CategoryAttendance   = "attendance"
	CategoryAnnouncement = "announcement"
	CategoryGeneral      = "general"
)

var Categories = []string{CategoryGrade, CategoryAttendance, CategoryAnnouncement, CategoryGeneral}

// Record is one durable user-facing notification. The ID is derived from
// the source row, never random, so the same fact always maps to the same
// record no matter which subscription path produced it.
type Record struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Category  string            `json:"category"`
	CreatedAt time.Time         `json:"created_at"` // UTC
	Read      bool              `json:"read"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// DeriveID maps (source table, source row id, operation) to a stable
// notification id.
func DeriveID(table, rowID string, op stream.Operation) string {
	sum := sha256.Sum256([]byte(table + "|" + rowID + "|" + string(op)))
	return hex.EncodeToString(sum[:])
}
