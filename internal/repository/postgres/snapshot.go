package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dtroode/gophfeed/internal/model"
)

var _ model.SnapshotStore = (*SnapshotRepository)(nil)

type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{
		db: db,
	}
}

func (r *SnapshotRepository) Save(ctx context.Context, snapshot model.SessionSnapshot) error {
	var profile any
	if snapshot.Profile != nil {
		raw, err := json.Marshal(snapshot.Profile)
		if err != nil {
			return fmt.Errorf("failed to marshal profile: %w", err)
		}
		profile = raw
	}

	query := `INSERT INTO session_snapshots (id, state, id_token, refresh_token, profile, last_error, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  ON CONFLICT (id) DO UPDATE SET
			  state = EXCLUDED.state,
			  id_token = EXCLUDED.id_token,
			  refresh_token = EXCLUDED.refresh_token,
			  profile = EXCLUDED.profile,
			  last_error = EXCLUDED.last_error,
			  updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		snapshot.ID, string(snapshot.State), snapshot.Credential.IDToken, snapshot.Credential.RefreshToken,
		profile, snapshot.LastError, snapshot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session snapshot: %w", err)
	}

	return nil
}

func (r *SnapshotRepository) Get(ctx context.Context, id string) (model.SessionSnapshot, error) {
	query := `SELECT id, state, id_token, refresh_token, profile, last_error, updated_at
			  FROM session_snapshots WHERE id = $1`

	var (
		snap    model.SessionSnapshot
		state   string
		profile []byte
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&snap.ID, &state, &snap.Credential.IDToken, &snap.Credential.RefreshToken,
		&profile, &snap.LastError, &snap.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SessionSnapshot{}, model.ErrNotFound
		}
		return model.SessionSnapshot{}, fmt.Errorf("failed to get session snapshot: %w", err)
	}
	snap.State = model.SessionState(state)

	if len(profile) > 0 {
		var p model.Profile
		if err := json.Unmarshal(profile, &p); err != nil {
			return model.SessionSnapshot{}, fmt.Errorf("failed to unmarshal profile: %w", err)
		}
		snap.Profile = &p
	}

	return snap, nil
}

func (r *SnapshotRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM session_snapshots WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete session snapshot: %w", err)
	}
	return nil
}

// DeleteOlderThan removes snapshots not updated since t.
func (r *SnapshotRepository) DeleteOlderThan(ctx context.Context, t time.Time) (int64, error) {
	query := `DELETE FROM session_snapshots WHERE updated_at < $1`

	res, err := r.db.ExecContext(ctx, query, t)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired session snapshots: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted snapshots: %w", err)
	}
	return n, nil
}
