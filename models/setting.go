package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rahulkrishna-web/homerun-shipping-app/config"
	"gorm.io/gorm/clause"
)

// AppSetting is one key/value row of the app settings store. Values are kept
// as strings; callers normalize types on read (the admin UI historically
// wrote booleans as literal "true"/"false" strings).
type AppSetting struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Value     string    `gorm:"size:500" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetSettingsMap(ctx context.Context) (map[string]string, error) {
	db := config.GetDB()
	if db == nil {
		return nil, errors.New("db is nil")
	}
	var rows []AppSetting
	if err := db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	settings := make(map[string]string, len(rows))
	for _, row := range rows {
		settings[row.Name] = row.Value
	}
	return settings, nil
}

// UpsertSettings writes only the supplied keys; absent keys keep their
// current values.
func UpsertSettings(ctx context.Context, values map[string]string) error {
	if config.GetDB() == nil {
		return errors.New("db is nil")
	}
	db := config.GetDB().WithContext(ctx)
	for name, value := range values {
		row := AppSetting{Name: strings.TrimSpace(name), Value: value}
		if row.Name == "" {
			continue
		}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// ParseLooseBool normalizes loosely typed boolean settings values.
func ParseLooseBool(value string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return def
	}
}
