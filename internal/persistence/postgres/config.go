package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hoangnph/vnquant/internal/domain"
)

// ConfigRepo implements persistence.ConfigRepo against
// analysis_configurations, addressed by content hash (spec §4.7 step 2,
// invariant 7).
type ConfigRepo struct {
	DB *sqlx.DB
}

type configRow struct {
	ID          int64           `db:"id"`
	Name        string          `db:"name"`
	ConfigType  string          `db:"config_type"`
	Version     int             `db:"version"`
	ConfigData  json.RawMessage `db:"config_data"`
	IsActive    bool            `db:"is_active"`
	ContentHash string          `db:"content_hash"`
}

func (r configRow) toDomain() domain.ConfigRecord {
	return domain.ConfigRecord{
		ID: r.ID, Name: r.Name, Type: domain.ConfigType(r.ConfigType), Version: r.Version,
		ConfigData: r.ConfigData, IsActive: r.IsActive, ContentHash: r.ContentHash,
	}
}

// EnsureByHash looks up an existing record by content hash, or creates
// the next version for (name, type) if none exists — configs are
// immutable once referenced (spec §3 "Config record").
func (r *ConfigRepo) EnsureByHash(ctx context.Context, name string, typ domain.ConfigType, payload any) (domain.ConfigRecord, error) {
	hash, err := domain.ContentHash(payload)
	if err != nil {
		return domain.ConfigRecord{}, fmt.Errorf("postgres: content hash: %w", err)
	}

	var existing configRow
	err = r.DB.GetContext(ctx, &existing, `
		SELECT id, name, config_type, version, config_data, is_active, content_hash
		FROM analysis_configurations WHERE content_hash = $1`, hash)
	if err == nil {
		return existing.toDomain(), nil
	}
	if err != sql.ErrNoRows {
		return domain.ConfigRecord{}, fmt.Errorf("postgres: lookup config: %w", err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return domain.ConfigRecord{}, fmt.Errorf("postgres: marshal config payload: %w", err)
	}

	var nextVersion int
	if err := r.DB.GetContext(ctx, &nextVersion, `
		SELECT COALESCE(MAX(version), 0) + 1 FROM analysis_configurations WHERE name = $1`, name); err != nil {
		return domain.ConfigRecord{}, fmt.Errorf("postgres: next config version: %w", err)
	}

	var row configRow
	err = r.DB.GetContext(ctx, &row, `
		INSERT INTO analysis_configurations (name, config_type, version, config_data, is_active, content_hash)
		VALUES ($1, $2, $3, $4, true, $5)
		ON CONFLICT (name, version) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, config_type, version, config_data, is_active, content_hash`,
		name, string(typ), nextVersion, data, hash)
	if err != nil {
		if isUniqueViolation(err) {
			// Two orchestrator batches resolved the same content hash
			// concurrently and both computed the same next version; the
			// loser here just needs the winner's row.
			var existing configRow
			if gerr := r.DB.GetContext(ctx, &existing, `
				SELECT id, name, config_type, version, config_data, is_active, content_hash
				FROM analysis_configurations WHERE content_hash = $1`, hash); gerr == nil {
				return existing.toDomain(), nil
			}
		}
		return domain.ConfigRecord{}, fmt.Errorf("postgres: insert config: %w", err)
	}
	return row.toDomain(), nil
}

func (r *ConfigRepo) Get(ctx context.Context, id int64) (domain.ConfigRecord, error) {
	var row configRow
	err := r.DB.GetContext(ctx, &row, `
		SELECT id, name, config_type, version, config_data, is_active, content_hash
		FROM analysis_configurations WHERE id = $1`, id)
	if err != nil {
		return domain.ConfigRecord{}, fmt.Errorf("postgres: get config %d: %w", id, err)
	}
	return row.toDomain(), nil
}
