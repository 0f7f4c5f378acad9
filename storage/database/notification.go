package database

import (
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/notification"
)

// notificationStateKey is the single well-known key the serialized
// notification document lives under.
const notificationStateKey = "notification_state"

// NotificationRepository persists the whole notification state as one
// JSON document in the kv_store table.
type NotificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*NotificationRepository)(nil)

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *NotificationRepository) LoadState() (notification.State, error) {
	var raw []byte
	err := repo.db.Get(&raw, `SELECT value FROM kv_store WHERE key = $1`, notificationStateKey)
	if err == sql.ErrNoRows {
		return notification.State{}, nil
	}
	if err != nil {
		return notification.State{}, errors.Wrap(err, "loading notification state")
	}

	var state notification.State
	if err := json.Unmarshal(raw, &state); err != nil {
		return notification.State{}, errors.Wrap(err, "decoding notification state")
	}
	return state, nil
}

func (repo *NotificationRepository) SaveState(state notification.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "encoding notification state")
	}

	_, err = repo.db.Exec(
		`INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		notificationStateKey, raw,
	)
	return errors.Wrap(err, "saving notification state")
}
