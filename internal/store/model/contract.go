package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Contract struct {
	ID              uuid.UUID `gorm:"primaryKey;type:VARCHAR(36);"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	OrgID           string `gorm:"index;not null"`
	Title           string `gorm:"not null"`
	PropertyAddress string
	LandlordID      string `gorm:"index;not null"`
	TenantID        string `gorm:"index;not null"`
	Status          string `gorm:"index;not null"`
	RentAmount      int64
	Currency        string `gorm:"type:VARCHAR(3);"`
	StartDate       *time.Time
	EndDate         *time.Time
}

type ContractList []Contract

func (c Contract) String() string {
	val, _ := json.Marshal(c)
	return string(val)
}

// IsParty reports whether user signs the contract on either side.
func (c Contract) IsParty(user string) bool {
	return user != "" && (c.LandlordID == user || c.TenantID == user)
}
