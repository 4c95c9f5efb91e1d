package storage

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormStorage persists the snapshot in users + holdings tables. Save
// replaces the full table contents in one transaction to keep the
// whole-snapshot write semantics of the file backend.
type GormStorage struct {
	db *gorm.DB
}

func NewGormStorage(driver, dsn string) (*GormStorage, error) {
	var gormDialector gorm.Dialector
	if driver == "postgres" {
		gormDialector = postgres.Open(dsn)
	} else if driver == "sqlite" {
		gormDialector = sqlite.Open(dsn)
	} else {
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := gorm.Open(gormDialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	return &GormStorage{db: db}, nil
}

func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.AutoMigrate(&User{}, &HoldingRow{})
}

func (s *GormStorage) Load(ctx context.Context) (Snapshot, error) {
	var users []User
	if err := s.db.WithContext(ctx).Find(&users).Error; err != nil {
		return nil, err
	}
	var rows []HoldingRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}

	snap := make(Snapshot, len(users))
	for _, u := range users {
		snap[u.ID] = Portfolio{}
	}
	for _, r := range rows {
		pf, ok := snap[r.UserID]
		if !ok {
			// Holding without a user row; keep it rather than drop data.
			pf = Portfolio{}
		}
		pf[r.Currency] = Holding{Amount: r.Amount}
		snap[r.UserID] = pf
	}
	return snap.Normalize(), nil
}

func (s *GormStorage) Save(ctx context.Context, snap Snapshot) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&HoldingRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&User{}).Error; err != nil {
			return err
		}
		for user, pf := range snap {
			if err := tx.Create(&User{ID: user}).Error; err != nil {
				return err
			}
			for currency, h := range pf {
				row := HoldingRow{UserID: user, Currency: currency, Amount: h.Amount}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *GormStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
