package repository

import (
	"testing"

	"github.com/nimasrn/academy-ledger/pkg/pg"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Entities lists every table, in creation order, for AutoMigrate in tests.
func Entities() []interface{} {
	return []interface{}{
		&UserEntity{}, &UserProfileEntity{},
		&CurrencyEntity{}, &FeeStructureEntity{},
		&AcademicYearEntity{}, &SemesterEntity{}, &CourseEntity{},
		&BatchEntity{}, &StudentEntity{}, &TeacherEntity{},
		&LedgerEntity{}, &TransactionEntity{}, &PaymentImportEntity{},
		&GradeEntity{}, &AttendanceEntity{},
		&ContactEntity{}, &OutboxEventEntity{},
	}
}

type testDB struct {
	*pg.DB
	rawDB *gorm.DB
}

func setupTestDB(t *testing.T) *testDB {
	db, raw := OpenTestDB(t)
	return &testDB{
		DB:    db,
		rawDB: raw,
	}
}

// OpenTestDB opens a migrated in-memory sqlite database. Other packages use it
// to test against real repositories.
func OpenTestDB(t *testing.T) (*pg.DB, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// every connection to :memory: is a fresh database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(Entities()...))

	return pg.New(db, db), db
}
