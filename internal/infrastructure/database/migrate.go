package database

import (
	"errors"
	"fmt"

	"github.com/sangkips/tillpoint-api/internal/config"
	"github.com/sangkips/tillpoint-api/internal/domain/entity"
	"github.com/sangkips/tillpoint-api/internal/domain/enum"
	"github.com/sangkips/tillpoint-api/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AutoMigrate runs GORM auto-migration for all entities
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&entity.User{},
		&entity.Product{},
		&entity.Customer{},
		&entity.Sale{},
		&entity.SaleItem{},
		&entity.InvoiceSequence{},
		&entity.IdempotencyKey{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// SeedDefaultData creates the invoice counter and the initial staff accounts.
// It is safe to run on every start.
func SeedDefaultData(db *gorm.DB, seed config.SeedConfig, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	if err := seedInvoiceSequence(db); err != nil {
		return err
	}

	users := []struct {
		username string
		password string
		role     enum.UserRole
	}{
		{seed.AdminUsername, seed.AdminPassword, enum.RoleAdmin},
		{seed.CashierUsername, seed.CashierPassword, enum.RoleCashier},
	}
	for _, u := range users {
		if u.username == "" || u.password == "" {
			continue
		}
		var existing entity.User
		err := db.Where("username = ?", u.username).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("look up seed user %s: %w", u.username, err)
		}

		hashed, err := utils.HashPassword(u.password)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}
		user := entity.User{
			Username: u.username,
			Password: hashed,
			Role:     u.role,
			IsStaff:  true,
			IsActive: true,
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("create seed user %s: %w", u.username, err)
		}
		log.Info("seeded user", zap.String("username", u.username), zap.String("role", u.role.String()))
	}
	return nil
}

// seedInvoiceSequence starts the counter after any sales already present, so
// an existing database keeps issuing fresh numbers.
func seedInvoiceSequence(db *gorm.DB) error {
	var seq entity.InvoiceSequence
	err := db.Where("name = ?", entity.SalesInvoiceSequence).First(&seq).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("load invoice sequence: %w", err)
	}

	var sales int64
	if err := db.Model(&entity.Sale{}).Count(&sales).Error; err != nil {
		return fmt.Errorf("count sales: %w", err)
	}
	seq = entity.InvoiceSequence{Name: entity.SalesInvoiceSequence, Value: sales}
	if err := db.Create(&seq).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("create invoice sequence: %w", err)
	}
	return nil
}
