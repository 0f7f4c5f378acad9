package dummydb

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/notification"
)

// NotificationRepository is an in-memory notification.Repository. State
// round-trips through JSON, same as the real kv row, so serialization
// bugs surface in tests too.
type NotificationRepository struct {
	mu  sync.Mutex
	raw []byte

	// FailWrites makes SaveState fail until unset, for persistence
	// failure-path tests.
	FailWrites bool

	saveCount int
}

var _ notification.Repository = (*NotificationRepository)(nil)

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{}
}

func (repo *NotificationRepository) LoadState() (notification.State, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if repo.raw == nil {
		return notification.State{}, nil
	}
	var state notification.State
	if err := json.Unmarshal(repo.raw, &state); err != nil {
		return notification.State{}, errors.Wrap(err, "decoding notification state")
	}
	return state, nil
}

func (repo *NotificationRepository) SaveState(state notification.State) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if repo.FailWrites {
		return errors.New("storage write refused")
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "encoding notification state")
	}
	repo.raw = raw
	repo.saveCount++
	return nil
}

// SaveCount reports how many successful writes happened.
func (repo *NotificationRepository) SaveCount() int {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return repo.saveCount
}
