// Package dbtest opens migrated in-memory SQLite databases for repository and
// service tests, plus a few seed helpers shared across domains.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/scentlab/perfumery-backend/pkg/db"
	"github.com/scentlab/perfumery-backend/pkg/db/models"
	"github.com/scentlab/perfumery-backend/pkg/migrate"
	"gorm.io/gorm"
)

// Open returns a client over a private in-memory database with every
// migration applied. The database is dropped when the test ends.
func Open(t *testing.T) *db.Client {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	client, err := db.NewSQLite(ctx, dsn, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	sqlDB, err := client.SQL()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	if err := migrate.Up(ctx, sqlDB, db.DialectSQLite); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return client
}

func MustCreateUser(t *testing.T, conn *gorm.DB, username string, isAdmin bool) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        fmt.Sprintf("%s@example.com", username),
		PasswordHash: "hash",
		IsAdmin:      isAdmin,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func MustCreateBrand(t *testing.T, conn *gorm.DB, name string) *models.Brand {
	t.Helper()
	brand := &models.Brand{Name: name}
	if err := conn.Create(brand).Error; err != nil {
		t.Fatalf("create brand: %v", err)
	}
	return brand
}

func MustCreatePerfume(t *testing.T, conn *gorm.DB, brandID int64, name string) *models.Perfume {
	t.Helper()
	perfume := &models.Perfume{BrandID: brandID, Name: name}
	if err := conn.Create(perfume).Error; err != nil {
		t.Fatalf("create perfume: %v", err)
	}
	return perfume
}

func MustCreateFormula(t *testing.T, conn *gorm.DB, perfumeID int64, fragrance, alcohol, water float64, restDay int) *models.PerfumeFormula {
	t.Helper()
	formula := &models.PerfumeFormula{
		PerfumeID:           perfumeID,
		FragrancePercentage: fragrance,
		AlcoholPercentage:   alcohol,
		WaterPercentage:     water,
		RestDay:             restDay,
	}
	if err := conn.Create(formula).Error; err != nil {
		t.Fatalf("create formula: %v", err)
	}
	return formula
}
