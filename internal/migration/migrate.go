package migration

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	auditdomain "github.com/EquidnaMX/stag-herd/internal/audit/domain"
	"github.com/EquidnaMX/stag-herd/internal/events"
	"github.com/EquidnaMX/stag-herd/internal/idempotency"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
)

const versionTable = "schema_migrations"

type schemaVersion struct {
	Version   string    `gorm:"column:version;primaryKey;type:text"`
	AppliedAt time.Time `gorm:"column:applied_at;not null"`
}

func (schemaVersion) TableName() string { return versionTable }

// Models lists every table the service owns, for gorm AutoMigrate.
func Models() []any {
	return []any{
		&domain.Payment{},
		&idempotency.Reservation{},
		&events.OutboxEvent{},
		&auditdomain.AuditLog{},
	}
}

// AutoMigrate creates the schema from the gorm models. Used for sqlite
// databases, where the SQL files are not applied.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// RunMigrations applies the embedded *.up.sql files not yet recorded in
// schema_migrations, in file name order, each in its own transaction.
// It returns the versions applied by this call.
func RunMigrations(ctx context.Context, db *gorm.DB) ([]string, error) {
	db = db.WithContext(ctx)
	if err := db.AutoMigrate(&schemaVersion{}); err != nil {
		return nil, fmt.Errorf("create %s: %w", versionTable, err)
	}

	var done []string
	if err := db.Model(&schemaVersion{}).Pluck("version", &done).Error; err != nil {
		return nil, fmt.Errorf("read %s: %w", versionTable, err)
	}
	seen := make(map[string]struct{}, len(done))
	for _, version := range done {
		seen[version] = struct{}{}
	}

	files, err := fs.Glob(embeddedMigrations, path.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var applied []string
	for _, file := range files {
		version := strings.TrimSuffix(path.Base(file), ".up.sql")
		if _, ok := seen[version]; ok {
			continue
		}
		body, err := fs.ReadFile(embeddedMigrations, file)
		if err != nil {
			return applied, err
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(string(body)).Error; err != nil {
				return err
			}
			return tx.Create(&schemaVersion{Version: version, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return applied, fmt.Errorf("migration %s: %w", version, err)
		}
		applied = append(applied, version)
	}
	return applied, nil
}
