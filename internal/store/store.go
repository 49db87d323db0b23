package store

import (
	"context"

	"github.com/propertyhub/lease-planner/internal/store/model"
	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Contract() Contract
	ScrapeJob() ScrapeJob
	Invoice() Invoice
	InitialMigration(ctx context.Context) error
	Statistics(ctx context.Context) (model.Stats, error)
	Close() error
}

type DataStore struct {
	db        *gorm.DB
	contract  Contract
	scrapeJob ScrapeJob
	invoice   Invoice
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		contract:  NewContractStore(db),
		scrapeJob: NewScrapeJobStore(db),
		invoice:   NewInvoiceStore(db),
		db:        db,
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Contract() Contract {
	return s.contract
}

func (s *DataStore) ScrapeJob() ScrapeJob {
	return s.scrapeJob
}

func (s *DataStore) Invoice() Invoice {
	return s.invoice
}

// InitialMigration creates the schema from the models. Postgres deployments run
// the goose migrations instead.
func (s *DataStore) InitialMigration(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&model.Contract{}, &model.ScrapeJob{}, &model.Invoice{})
}

func (s *DataStore) Statistics(ctx context.Context) (model.Stats, error) {
	db := s.db.WithContext(ctx)

	var contracts []model.StatusCount
	if err := db.Model(&model.Contract{}).Select("status, COUNT(*) AS total").Group("status").Scan(&contracts).Error; err != nil {
		return model.Stats{}, err
	}

	var jobs []model.StatusCount
	if err := db.Model(&model.ScrapeJob{}).Select("status, COUNT(*) AS total").Group("status").Scan(&jobs).Error; err != nil {
		return model.Stats{}, err
	}

	var organizations int64
	if err := db.Model(&model.Contract{}).Distinct("org_id").Count(&organizations).Error; err != nil {
		return model.Stats{}, err
	}

	var invoices int64
	if err := db.Model(&model.Invoice{}).Count(&invoices).Error; err != nil {
		return model.Stats{}, err
	}

	return model.NewStats(contracts, jobs, int(organizations), int(invoices)), nil
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
