package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("settings: pool not configured")

	// ErrNotFound indicates no aggregate has been persisted yet.
	ErrNotFound = errors.New("settings: not found")
)

// settingsKey is the single slot the aggregate lives under. There is one
// global settings scope, not one per user.
const settingsKey = "user_settings_alerts"

const (
	upsertSettingsSQL = `INSERT INTO user_settings (key, payload, updated_at)
    VALUES ($1, $2, NOW())
    ON CONFLICT (key) DO UPDATE
    SET payload    = EXCLUDED.payload,
        updated_at = NOW();`

	selectSettingsSQL = `SELECT payload FROM user_settings WHERE key = $1;`
)

// Store defines durable persistence of the settings aggregate.
type Store interface {
	Load(ctx context.Context) (SettingsAndAlerts, error)
	Save(ctx context.Context, aggregate SettingsAndAlerts) error
}

// Repository persists the aggregate as a JSONB document in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgx pool into a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Close releases the underlying pool resources.
func (r *Repository) Close() {
	if r == nil || r.pool == nil {
		return
	}
	r.pool.Close()
}

// Load reads the stored aggregate. Returns ErrNotFound when nothing has been
// saved yet.
func (r *Repository) Load(ctx context.Context) (SettingsAndAlerts, error) {
	pool, err := r.getPool()
	if err != nil {
		return SettingsAndAlerts{}, err
	}

	var payload []byte
	if err := pool.QueryRow(ctx, selectSettingsSQL, settingsKey).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SettingsAndAlerts{}, ErrNotFound
		}
		return SettingsAndAlerts{}, fmt.Errorf("load settings: %w", err)
	}

	var aggregate SettingsAndAlerts
	if err := json.Unmarshal(payload, &aggregate); err != nil {
		return SettingsAndAlerts{}, fmt.Errorf("decode settings payload: %w", err)
	}
	return aggregate, nil
}

// Save replaces the stored aggregate wholesale.
func (r *Repository) Save(ctx context.Context, aggregate SettingsAndAlerts) error {
	pool, err := r.getPool()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(aggregate)
	if err != nil {
		return fmt.Errorf("encode settings payload: %w", err)
	}

	if _, err := pool.Exec(ctx, upsertSettingsSQL, settingsKey, payload); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (r *Repository) getPool() (*pgxpool.Pool, error) {
	if r == nil || r.pool == nil {
		return nil, ErrNotConfigured
	}
	return r.pool, nil
}

var _ Store = (*Repository)(nil)
