package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/propertyhub/lease-planner/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Contract interface {
	List(ctx context.Context, filter *ContractQueryFilter, opts *QueryOptions) (model.ContractList, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	Create(ctx context.Context, contract model.Contract) (*model.Contract, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (*model.Contract, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ContractStore struct {
	db *gorm.DB
}

// Make sure we conform to Contract interface
var _ Contract = (*ContractStore)(nil)

func NewContractStore(db *gorm.DB) Contract {
	return &ContractStore{db: db}
}

func (c *ContractStore) List(ctx context.Context, filter *ContractQueryFilter, opts *QueryOptions) (model.ContractList, error) {
	var contracts model.ContractList
	tx := c.getDB(ctx).Model(&contracts)

	if filter != nil {
		tx = apply(tx, filter.QueryFn)
	}
	if opts != nil {
		tx = apply(tx, opts.QueryFn)
	} else {
		tx = tx.Order("created_at DESC")
	}

	if err := tx.Find(&contracts).Error; err != nil {
		return nil, err
	}
	return contracts, nil
}

func (c *ContractStore) Get(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var contract model.Contract
	if err := c.getDB(ctx).First(&contract, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &contract, nil
}

func (c *ContractStore) Create(ctx context.Context, contract model.Contract) (*model.Contract, error) {
	if contract.ID == uuid.Nil {
		contract.ID = uuid.New()
	}
	if err := c.getDB(ctx).Clauses(clause.Returning{}).Create(&contract).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return &contract, nil
}

// UpdateStatus moves the contract from status from to status to. The update only
// applies if the stored status is still from, otherwise ErrStaleStatus is returned.
func (c *ContractStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (*model.Contract, error) {
	result := c.getDB(ctx).Model(&model.Contract{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		if _, err := c.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrStaleStatus
	}

	return c.Get(ctx, id)
}

func (c *ContractStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := c.getDB(ctx).Unscoped().Delete(&model.Contract{}, "id = ?", id)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}
	return nil
}

func (c *ContractStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return c.db.WithContext(ctx)
}
