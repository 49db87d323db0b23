package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/propertyhub/lease-planner/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Invoice interface {
	CreateBatch(ctx context.Context, jobID uuid.UUID, invoices model.InvoiceList) error
	ListByJob(ctx context.Context, jobID uuid.UUID) (model.InvoiceList, error)
}

type InvoiceStore struct {
	db *gorm.DB
}

// Make sure we conform to Invoice interface
var _ Invoice = (*InvoiceStore)(nil)

func NewInvoiceStore(db *gorm.DB) Invoice {
	return &InvoiceStore{db: db}
}

// CreateBatch stores the invoices of a job. An invoice number already stored
// for the job is kept as is.
func (i *InvoiceStore) CreateBatch(ctx context.Context, jobID uuid.UUID, invoices model.InvoiceList) error {
	if len(invoices) == 0 {
		return nil
	}

	rows := make(model.InvoiceList, 0, len(invoices))
	for _, inv := range invoices {
		inv.ID = 0
		inv.JobID = jobID
		rows = append(rows, inv)
	}

	return i.getDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}, {Name: "number"}},
		DoNothing: true,
	}).Create(&rows).Error
}

func (i *InvoiceStore) ListByJob(ctx context.Context, jobID uuid.UUID) (model.InvoiceList, error) {
	var invoices model.InvoiceList
	if err := i.getDB(ctx).Where("job_id = ?", jobID).Order("issued_at DESC, id").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (i *InvoiceStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return i.db.WithContext(ctx)
}
