// ABOUTME: Frame log repository
// ABOUTME: Stores decoded frames in batches and lists them back by source and position
package store

import (
	"fmt"
	"time"

	"github.com/Sendspin/ltc-go/pkg/protocol"
	"gorm.io/gorm"
)

// FrameRepository provides database operations for logged frames
type FrameRepository struct {
	db *gorm.DB
}

// NewFrameRepository creates a new repository instance
func NewFrameRepository(db *gorm.DB) *FrameRepository {
	return &FrameRepository{db: db}
}

// Record stores a single frame
func (r *FrameRepository) Record(src string, f protocol.TimecodeFrame) error {
	rec := NewFrameRecord(src, f)
	rec.CreatedAt = time.Now()
	return r.db.Create(&rec).Error
}

// RecordBatch stores frames in one transaction
func (r *FrameRepository) RecordBatch(src string, frames []protocol.TimecodeFrame) error {
	if len(frames) == 0 {
		return nil
	}

	now := time.Now()
	records := make([]FrameRecord, len(frames))
	for i, f := range frames {
		records[i] = NewFrameRecord(src, f)
		records[i].CreatedAt = now
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(records, 500).Error; err != nil {
			return fmt.Errorf("failed to store %d frames: %w", len(records), err)
		}
		return nil
	})
}

// List returns up to limit frames of src in stream order. An empty src
// lists every source.
func (r *FrameRepository) List(src string, limit int) ([]FrameRecord, error) {
	var records []FrameRecord
	q := r.db.Order("id")
	if src != "" {
		q = q.Where("source = ?", src)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindTimecode returns the frames of src carrying timecode tc. An empty
// src searches every source.
func (r *FrameRepository) FindTimecode(src, tc string) ([]FrameRecord, error) {
	var records []FrameRecord
	q := r.db.Where("timecode = ?", tc)
	if src != "" {
		q = q.Where("source = ?", src)
	}
	if err := q.Order("source").Order("off_start").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Count returns the number of frames logged for src
func (r *FrameRepository) Count(src string) (int64, error) {
	var count int64
	q := r.db.Model(&FrameRecord{})
	if src != "" {
		q = q.Where("source = ?", src)
	}
	err := q.Count(&count).Error
	return count, err
}

// Prune removes frames logged before cutoff
func (r *FrameRepository) Prune(cutoff time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", cutoff).Delete(&FrameRecord{})
	return result.RowsAffected, result.Error
}
