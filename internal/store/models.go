// ABOUTME: Frame log data model
// ABOUTME: Maps decoded frames to the frames table
package store

import (
	"time"

	"github.com/Sendspin/ltc-go/pkg/protocol"
)

// FrameRecord is one decoded frame in the log
type FrameRecord struct {
	ID         uint      `gorm:"primarykey"`
	Source     string    `gorm:"index;size:200"`
	Timecode   string    `gorm:"index;size:11"`
	Date       string    `gorm:"size:10"`
	Timezone   string    `gorm:"size:5"`
	DropFrame  bool
	Reverse    bool
	OffStart   int64 `gorm:"index"`
	OffEnd     int64
	VolumeDBFS float64
	UserBits   uint32
	Speed      float64
	CreatedAt  time.Time
}

// TableName specifies the table name for GORM
func (FrameRecord) TableName() string {
	return "frames"
}

// NewFrameRecord converts a wire frame for storage
func NewFrameRecord(src string, f protocol.TimecodeFrame) FrameRecord {
	return FrameRecord{
		Source:     src,
		Timecode:   f.Timecode,
		Date:       f.Date,
		Timezone:   f.Timezone,
		DropFrame:  f.DropFrame,
		Reverse:    f.Reverse,
		OffStart:   f.OffStart,
		OffEnd:     f.OffEnd,
		VolumeDBFS: f.VolumeDBFS,
		UserBits:   f.UserBits,
		Speed:      f.Speed,
	}
}
