// Package models provides GORM-based models with a Django ORM-like interface
// for the casting/briefing workflow: clients, creators, castings and their
// invitations/selections/submissions, briefings, and automation rules.
package models

import (
	"fmt"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the database connection and all model managers
type DB struct {
	*gorm.DB
	Users             *UserManager
	Clients           *ClientManager
	Creators          *CreatorManager
	Castings          *CastingManager
	Invitations       *CastingInvitationManager
	Selections        *CastingSelectionManager
	Briefings         *BriefingManager
	BriefingLinks     *CastingBriefingLinkManager
	Submissions       *CreatorSubmissionManager
	AutomationRules   *AutomationRuleManager
	AutomationActions *AutomationActionManager
	AutomationLogs    *AutomationLogManager
}

// NewDB creates a new database connection and initializes all managers
func NewDB() (*DB, error) {
	dsn := os.Getenv("DB_STRING")
	if dsn == "" {
		return nil, fmt.Errorf("DB_STRING environment variable not set")
	}

	config := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	gormDB, err := gorm.Open(postgres.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return Wrap(gormDB), nil
}

// Wrap builds a DB aggregate around an existing gorm connection.
func Wrap(gormDB *gorm.DB) *DB {
	return &DB{
		DB:                gormDB,
		Users:             NewUserManager(gormDB),
		Clients:           NewClientManager(gormDB),
		Creators:          NewCreatorManager(gormDB),
		Castings:          NewCastingManager(gormDB),
		Invitations:       NewCastingInvitationManager(gormDB),
		Selections:        NewCastingSelectionManager(gormDB),
		Briefings:         NewBriefingManager(gormDB),
		BriefingLinks:     NewCastingBriefingLinkManager(gormDB),
		Submissions:       NewCreatorSubmissionManager(gormDB),
		AutomationRules:   NewAutomationRuleManager(gormDB),
		AutomationActions: NewAutomationActionManager(gormDB),
		AutomationLogs:    NewAutomationLogManager(gormDB),
	}
}

// AutoMigrate runs GORM auto-migration for all models
func (db *DB) AutoMigrate() error {
	return db.DB.AutoMigrate(
		&User{},
		&Client{},
		&Creator{},
		&Casting{},
		&CastingInvitation{},
		&CastingSelection{},
		&Briefing{},
		&CastingBriefingLink{},
		&CreatorSubmission{},
		&AutomationRule{},
		&AutomationAction{},
		&AutomationLog{},
	)
}

// Transaction runs a function within a database transaction
func (db *DB) Transaction(fn func(*DB) error) error {
	return db.DB.Transaction(func(tx *gorm.DB) error {
		return fn(Wrap(tx))
	})
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health reports basic connectivity information for the health endpoint.
func (db *DB) Health() map[string]string {
	stats := make(map[string]string)
	sqlDB, err := db.DB.DB()
	if err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
		return stats
	}
	if err := sqlDB.Ping(); err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
		return stats
	}
	stats["status"] = "up"
	stats["open_connections"] = fmt.Sprintf("%d", sqlDB.Stats().OpenConnections)
	return stats
}

// Django-like convenience methods

// GetObjectOr404 retrieves an object or returns an error (similar to Django's get_object_or_404)
func GetObjectOr404[T any](db *gorm.DB, conditions ...interface{}) (*T, error) {
	var obj T
	err := db.First(&obj, conditions...).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("object not found")
		}
		return nil, err
	}
	return &obj, nil
}

// Exists checks if a record exists (similar to Django's exists())
func Exists[T any](db *gorm.DB, conditions ...interface{}) (bool, error) {
	var count int64
	err := db.Model(new(T)).Where(conditions[0], conditions[1:]...).Count(&count).Error
	return count > 0, err
}

// BulkCreate creates multiple records (similar to Django's bulk_create)
func BulkCreate[T any](db *gorm.DB, objects []T) error {
	if len(objects) == 0 {
		return nil
	}
	return db.CreateInBatches(objects, 100).Error
}

// Count returns the count of records (similar to Django's count())
func Count[T any](db *gorm.DB, conditions ...interface{}) (int64, error) {
	var count int64
	query := db.Model(new(T))
	if len(conditions) > 0 {
		query = query.Where(conditions[0], conditions[1:]...)
	}
	err := query.Count(&count).Error
	return count, err
}
