package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"go-pos/pkg/events"
	"go-pos/pkg/transfer"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store persists the audit trail in MySQL.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&TransferLog{}, &PrintJobRecord{})
}

func transferLog(ev transfer.Event) (TransferLog, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return TransferLog{}, err
	}
	rec := TransferLog{
		Kind:        string(ev.Kind),
		SourceTable: ev.Source.ID.String(),
		OrderID:     ev.OrderID.String(),
		Actor:       ev.Actor,
		Origin:      ev.Origin,
		Payload:     datatypes.JSON(payload),
		OccurredAt:  ev.At,
	}
	if ev.Destination != nil {
		rec.DestTable = ev.Destination.ID.String()
	}
	return rec, nil
}

// RecordTransfer implements transfer.Recorder.
func (s *Store) RecordTransfer(ctx context.Context, ev transfer.Event) error {
	rec, err := transferLog(ev)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("saving transfer log: %w", err)
	}
	return nil
}

// RecentTransfers returns the newest entries first.
func (s *Store) RecentTransfers(ctx context.Context, limit int) ([]TransferLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var logs []TransferLog
	err := s.db.WithContext(ctx).Order("occurred_at DESC, id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

func (s *Store) CreatePrintJob(ctx context.Context, job events.PrintJob) error {
	rec := PrintJobRecord{
		JobID:       job.ID,
		OrderID:     job.OrderID.String(),
		Context:     job.Context,
		RequestedBy: job.RequestedBy,
		Status:      PrintQueued,
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

// FinishPrintJob marks a job printed, or failed when printErr is set.
func (s *Store) FinishPrintJob(ctx context.Context, jobID, device string, printErr error) error {
	updates := map[string]any{"status": PrintPrinted, "device": device, "error": ""}
	if printErr != nil {
		msg := printErr.Error()
		if len(msg) > 255 {
			msg = msg[:255]
		}
		updates["status"] = PrintFailed
		updates["error"] = msg
	}
	return s.db.WithContext(ctx).Model(&PrintJobRecord{}).Where("job_id = ?", jobID).Updates(updates).Error
}

func (s *Store) PrintJob(ctx context.Context, jobID string) (PrintJobRecord, error) {
	var rec PrintJobRecord
	err := s.db.WithContext(ctx).Where("job_id = ?", jobID).First(&rec).Error
	return rec, err
}
