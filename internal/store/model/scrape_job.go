package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ScrapeJob is the persisted form of a scrape job. The credential columns are
// cleared when the job reaches a terminal status.
type ScrapeJob struct {
	ID                 uuid.UUID `gorm:"primaryKey;type:VARCHAR(36);"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
	OrgID              string `gorm:"index;not null"`
	Username           string `gorm:"index;not null"`
	Provider           string `gorm:"not null"`
	Status             string `gorm:"index;not null"`
	Reason             string
	CredentialUsername string
	CredentialSecret   string
	Invoices           []Invoice `gorm:"foreignKey:JobID;references:ID;constraint:OnDelete:CASCADE;"`
}

type ScrapeJobList []ScrapeJob

func (j ScrapeJob) String() string {
	// credentials are never printed
	j.CredentialUsername, j.CredentialSecret = "", ""
	val, _ := json.Marshal(j)
	return string(val)
}

type Invoice struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	JobID       uuid.UUID `gorm:"type:VARCHAR(36);uniqueIndex:invoices_job_id_number;not null"`
	Number      string    `gorm:"uniqueIndex:invoices_job_id_number;not null"`
	Amount      int64
	Currency    string `gorm:"type:VARCHAR(3);"`
	IssuedAt    time.Time
	DownloadRef string
}

type InvoiceList []Invoice
