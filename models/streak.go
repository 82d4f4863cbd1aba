package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Streak is the per-user consecutive-day activity counter.
// Invariant: CurrentStreak <= LongestStreak. LastActiveAt is compared at
// day granularity only.
type Streak struct {
	StreakID        string    `gorm:"primaryKey" json:"streakId"`
	UserID          string    `gorm:"uniqueIndex" json:"userId"`
	CurrentStreak   int       `gorm:"default:0" json:"currentStreak"`
	LongestStreak   int       `gorm:"default:0" json:"longestStreak"`
	StartDate       time.Time `json:"startDate"`
	LastActiveAt    time.Time `json:"lastActiveAt"`
	FreezeAvailable int       `gorm:"default:0" json:"freezeAvailable"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (s *Streak) BeforeCreate(tx *gorm.DB) error {
	if s.StreakID == "" {
		s.StreakID = uuid.NewString()
	}
	return nil
}

// StreakDay records that a day counted toward the streak. Append-only.
type StreakDay struct {
	StreakDayID  string    `gorm:"primaryKey" json:"streakDayId"`
	StreakID     string    `gorm:"index" json:"streakId"`
	UserID       string    `gorm:"index:idx_user_activity_date" json:"userId"`
	ActivityDate time.Time `gorm:"index:idx_user_activity_date" json:"activityDate"`
	IsFrozen     bool      `gorm:"default:false" json:"isFrozen"`
	CreatedAt    time.Time
}

func (d *StreakDay) BeforeCreate(tx *gorm.DB) error {
	if d.StreakDayID == "" {
		d.StreakDayID = uuid.NewString()
	}
	return nil
}
