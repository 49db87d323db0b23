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

const (
	jobStatusPending    = "pending"
	jobStatusInProgress = "in_progress"
)

type ScrapeJob interface {
	List(ctx context.Context, filter *ScrapeJobQueryFilter, opts *QueryOptions) (model.ScrapeJobList, error)
	Get(ctx context.Context, id uuid.UUID) (*model.ScrapeJob, error)
	Create(ctx context.Context, job model.ScrapeJob) (*model.ScrapeJob, error)
	Claim(ctx context.Context, id uuid.UUID) (*model.ScrapeJob, error)
	ClaimPending(ctx context.Context, limit int) (model.ScrapeJobList, error)
	Finish(ctx context.Context, id uuid.UUID, from []string, status, reason string) (*model.ScrapeJob, error)
}

type ScrapeJobStore struct {
	db *gorm.DB
}

// Make sure we conform to ScrapeJob interface
var _ ScrapeJob = (*ScrapeJobStore)(nil)

func NewScrapeJobStore(db *gorm.DB) ScrapeJob {
	return &ScrapeJobStore{db: db}
}

func (s *ScrapeJobStore) List(ctx context.Context, filter *ScrapeJobQueryFilter, opts *QueryOptions) (model.ScrapeJobList, error) {
	var jobs model.ScrapeJobList
	tx := s.getDB(ctx).Model(&jobs)

	if filter != nil {
		tx = apply(tx, filter.QueryFn)
	}
	if opts != nil {
		tx = apply(tx, opts.QueryFn)
	} else {
		tx = tx.Order("created_at DESC")
	}

	if err := tx.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *ScrapeJobStore) Get(ctx context.Context, id uuid.UUID) (*model.ScrapeJob, error) {
	var job model.ScrapeJob
	if err := s.getDB(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (s *ScrapeJobStore) Create(ctx context.Context, job model.ScrapeJob) (*model.ScrapeJob, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if err := s.getDB(ctx).Clauses(clause.Returning{}).Omit("Invoices").Create(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return &job, nil
}

// Claim moves a pending job to in_progress. ErrStaleStatus means the job was
// claimed or finished by someone else.
func (s *ScrapeJobStore) Claim(ctx context.Context, id uuid.UUID) (*model.ScrapeJob, error) {
	return s.compareAndSet(ctx, id, []string{jobStatusPending}, map[string]any{
		"status":     jobStatusInProgress,
		"updated_at": time.Now().UTC(),
	})
}

// ClaimPending claims up to limit of the oldest pending jobs. Jobs claimed
// concurrently by another runner are skipped.
func (s *ScrapeJobStore) ClaimPending(ctx context.Context, limit int) (model.ScrapeJobList, error) {
	var ids []uuid.UUID
	err := s.getDB(ctx).Model(&model.ScrapeJob{}).
		Where("status = ?", jobStatusPending).
		Order("created_at").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}

	claimed := make(model.ScrapeJobList, 0, len(ids))
	for _, id := range ids {
		job, err := s.Claim(ctx, id)
		if err != nil {
			if errors.Is(err, ErrStaleStatus) || errors.Is(err, ErrRecordNotFound) {
				continue
			}
			return claimed, err
		}
		claimed = append(claimed, *job)
	}
	return claimed, nil
}

// Finish records the terminal status of a job whose status is one of from and
// clears its credentials. A job can only be finished once.
func (s *ScrapeJobStore) Finish(ctx context.Context, id uuid.UUID, from []string, status, reason string) (*model.ScrapeJob, error) {
	return s.compareAndSet(ctx, id, from, map[string]any{
		"status":              status,
		"reason":              reason,
		"credential_username": "",
		"credential_secret":   "",
		"updated_at":          time.Now().UTC(),
	})
}

func (s *ScrapeJobStore) compareAndSet(ctx context.Context, id uuid.UUID, from []string, values map[string]any) (*model.ScrapeJob, error) {
	result := s.getDB(ctx).Model(&model.ScrapeJob{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(values)
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrStaleStatus
	}

	return s.Get(ctx, id)
}

func (s *ScrapeJobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}
