package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"presence-engine/internal/db"
	"presence-engine/internal/presencesettings/domain"
)

// SQLRepository stores settings as JSON in company_settings.
type SQLRepository struct {
	db      *sql.DB
	dialect db.Dialect
	nowF    func() time.Time
}

// NewSQLRepository returns a settings repository for the given dialect.
func NewSQLRepository(conn *sql.DB, d db.Dialect) *SQLRepository {
	return &SQLRepository{db: conn, dialect: d, nowF: time.Now}
}

// GetByCompanyID returns the settings for the company, or nil if not found.
func (r *SQLRepository) GetByCompanyID(ctx context.Context, companyID string) (*domain.Settings, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		r.dialect.Rebind(`SELECT settings FROM company_settings WHERE company_id = ?`), companyID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var s domain.Settings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("decode settings for %s: %w", companyID, err)
	}
	return &s, nil
}

// Upsert saves or replaces the settings for the company. Zero fields are stored as-is so that
// later changes to the deployment defaults still apply to them.
func (r *SQLRepository) Upsert(ctx context.Context, companyID string, s *domain.Settings) error {
	if s == nil {
		s = &domain.Settings{}
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.dialect.Rebind(
		`INSERT INTO company_settings (company_id, settings, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (company_id) DO UPDATE SET settings = excluded.settings, updated_at = excluded.updated_at`),
		companyID, string(raw), r.dialect.Time(r.nowF()))
	return err
}
