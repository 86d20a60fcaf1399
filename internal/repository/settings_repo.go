package repository

import (
	"strconv"

	"famledger/internal/database"
)

// SettingsRepository is an explicit key-value preference store. Preferences
// are injected as a dependency rather than read from ambient state, so they
// can be faked in tests.
type SettingsRepository struct {
	db *database.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetSetting retrieves a setting value by key
func (r *SettingsRepository) GetSetting(key string) (string, error) {
	var value string
	query := `SELECT setting_value FROM settings WHERE setting_key = ?`
	err := r.db.QueryRow(query, key).Scan(&value)
	return value, err
}

// SetSetting updates or inserts a setting
func (r *SettingsRepository) SetSetting(key, value string) error {
	query := r.db.Dialect.UpsertSettings()
	_, err := r.db.Exec(query, key, value)
	return err
}

// AutoSavePercent returns the default auto-save percentage applied to income
// transactions, or 0 when auto-save is disabled.
func (r *SettingsRepository) AutoSavePercent() int {
	value, err := r.GetSetting("auto_save_percent")
	if err != nil {
		return 0
	}
	pct, err := strconv.Atoi(value)
	if err != nil || pct < 0 || pct > 100 {
		return 0
	}
	return pct
}

// SetAutoSavePercent stores the default auto-save percentage
func (r *SettingsRepository) SetAutoSavePercent(pct int) error {
	return r.SetSetting("auto_save_percent", strconv.Itoa(pct))
}
