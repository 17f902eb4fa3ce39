package audit

import (
	"time"

	"gorm.io/datatypes"
)

// TransferLog is one completed move, merge or cancellation.
type TransferLog struct {
	ID          uint   `gorm:"primaryKey"`
	Kind        string `gorm:"type:varchar(16);index"`
	SourceTable string `gorm:"type:varchar(64);index"`
	DestTable   string `gorm:"type:varchar(64)"`
	OrderID     string `gorm:"type:varchar(64);index"`
	Actor       string `gorm:"type:varchar(100)"`
	Origin      string `gorm:"type:varchar(100)"`
	// Payload is the full event as published.
	Payload    datatypes.JSON
	OccurredAt time.Time `gorm:"index"`
	CreatedAt  time.Time
}

type PrintStatus string

const (
	PrintQueued  PrintStatus = "queued"
	PrintPrinted PrintStatus = "printed"
	PrintFailed  PrintStatus = "failed"
)

// PrintJobRecord tracks a queued receipt from submission to printing.
type PrintJobRecord struct {
	ID          uint        `gorm:"primaryKey"`
	JobID       string      `gorm:"type:varchar(36);uniqueIndex"`
	OrderID     string      `gorm:"type:varchar(64);index"`
	Context     string      `gorm:"type:varchar(16)"`
	RequestedBy string      `gorm:"type:varchar(100)"`
	Status      PrintStatus `gorm:"type:varchar(16);default:queued"`
	Device      string      `gorm:"type:varchar(100)"`
	Error       string      `gorm:"type:varchar(255)"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
