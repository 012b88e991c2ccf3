package database

import (
	"fmt"

	"kasa-backend/internal/config"
	"kasa-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB is the shared connection used by the auth and admin handlers.
var DB *gorm.DB

// Open connects to Postgres. TranslateError turns unique violations into
// gorm.ErrDuplicatedKey, which the stores rely on.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

func Init(cfg *config.Config, logger *zap.Logger) error {
	db, err := Open(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	if err := Migrate(db, logger); err != nil {
		return err
	}
	DB = db
	logger.Info("database connected and migrated")
	return nil
}

// Migrate creates the schema. The partial unique index is the database side
// of "at most one OPEN session per register"; AutoMigrate cannot express it.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	err := db.AutoMigrate(
		&models.Branch{},
		&models.User{},
		&models.CashRegister{},
		&models.CashRegisterSession{},
		&models.SessionCashMovement{},
		&models.Payment{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_open_per_register
			ON cash_register_sessions (register_id) WHERE status = 'OPEN'`,
		`CREATE INDEX IF NOT EXISTS idx_payments_session_cash_completed
			ON payments (session_id) WHERE status = 'COMPLETED' AND method = 'CASH'`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	// the ledger is append-only; constraints keep bad rows out even if a
	// caller bypasses the service
	checks := map[string]string{
		"chk_movements_amount_positive": `ALTER TABLE session_cash_movements
			ADD CONSTRAINT chk_movements_amount_positive CHECK (amount > 0)`,
		"chk_sessions_opening_non_negative": `ALTER TABLE cash_register_sessions
			ADD CONSTRAINT chk_sessions_opening_non_negative CHECK (opening_cash_balance >= 0)`,
	}
	for name, stmt := range checks {
		var exists bool
		if err := db.Raw(`SELECT EXISTS (
				SELECT 1 FROM information_schema.table_constraints WHERE constraint_name = ?
			)`, name).Scan(&exists).Error; err != nil {
			return fmt.Errorf("inspect constraint %s: %w", name, err)
		}
		if exists {
			continue
		}
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("add constraint %s: %w", name, err)
		}
		if logger != nil {
			logger.Info("constraint added", zap.String("constraint", name))
		}
	}

	return nil
}
