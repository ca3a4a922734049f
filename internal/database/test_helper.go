package database

import (
	"fmt"
	"testing"

	"money-tracker/internal/config"
	"money-tracker/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// cleanupTables lists tables in foreign-key-safe delete order
var cleanupTables = []string{
	"audit_logs",
	"transactions",
	"blacklisted_tokens",
	"refresh_tokens",
	"users",
}

// SetupTestDB opens a migrated in-memory SQLite database
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), gormConfig)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	// every pooled connection to :memory: would be a separate database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	testDB := &DB{
		DB: db,
		config: &config.DatabaseConfig{
			Driver:         config.DriverSQLite,
			MaxConnections: 1,
			MaxIdleConns:   1,
		},
	}

	if err := testDB.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return testDB
}

// CreateTestUser inserts a password user with the given email
func CreateTestUser(t *testing.T, db *DB, email string) *models.User {
	t.Helper()

	user := &models.User{
		Email:        email,
		PasswordHash: "hashed_password",
		DisplayName:  "Test User",
		Provider:     models.ProviderPassword,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateTestGoogleUser inserts a user linked to a Google subject
func CreateTestGoogleUser(t *testing.T, db *DB, email, subject string) *models.User {
	t.Helper()

	user := &models.User{
		Email:         email,
		DisplayName:   "Google User",
		Provider:      models.ProviderGoogle,
		GoogleSubject: &subject,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test google user: %v", err)
	}

	return user
}

// CreateTestTransaction inserts a transaction for ownerID
func CreateTestTransaction(t *testing.T, db *DB, ownerID uuid.UUID, tx models.Transaction) *models.Transaction {
	t.Helper()

	tx.OwnerID = ownerID
	if err := db.Create(&tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}

	return &tx
}

// CleanupTestDB empties every table
func CleanupTestDB(t *testing.T, db *DB) {
	t.Helper()

	for _, table := range cleanupTables {
		if err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			t.Logf("failed to cleanup table %s: %v", table, err)
		}
	}
}
