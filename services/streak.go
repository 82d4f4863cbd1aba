package services

import (
	"context"
	"errors"
	"log"
	"time"

	"lingo-backend/models"

	"gorm.io/gorm"
)

// FreezePolicy selects how freeze credits interact with the daily
// activity update. Two variants of the engine exist in the wild; the
// integrator picks one via configuration.
type FreezePolicy string

const (
	// FreezePolicyPreviewOnly never consumes credits inside
	// RecordActivity; gaps are reconciled by PreviewAndApplyFreeze.
	FreezePolicyPreviewOnly FreezePolicy = "preview"
	// FreezePolicyInline additionally spends one credit inside
	// RecordActivity when the gap is exactly two days, preserving the
	// streak across the single missed day.
	FreezePolicyInline FreezePolicy = "inline"
)

// FreezeGrantAmount is the number of credits added per paid recovery.
const FreezeGrantAmount = 2

// StreakPreview is the read-time reconciliation result.
type StreakPreview struct {
	CurrentStreak       int  `json:"currentStreak"`
	UsedFreezeYesterday bool `json:"usedFreezeYesterday"`
}

// StreakDayView is one calendar entry.
type StreakDayView struct {
	Day      string `json:"day"`
	IsFrozen bool   `json:"isFrozen"`
}

// StreakInfo is the weekly streak view.
type StreakInfo struct {
	CurrentStreak int             `json:"currentStreak"`
	Days          []StreakDayView `json:"days"`
}

// MonthlyStreakDay is one entry of the monthly calendar.
type MonthlyStreakDay struct {
	Date     time.Time `json:"date"`
	IsFrozen bool      `json:"isFrozen"`
}

// Weekday labels in learner-facing order, Sunday first. Kept as the
// legacy front end expects them.
var weekdayLabels = [7]string{"CN", "T2", "T3", "T4", "T5", "T6", "T7"}

// StreakService tracks consecutive-day activity per user. All day
// arithmetic is anchored to Location, never to the server clock.
type StreakService struct {
	DB       *gorm.DB
	Location *time.Location
	Policy   FreezePolicy
	Logger   *log.Logger

	// Now is swappable for tests.
	Now func() time.Time
}

func NewStreakService(db *gorm.DB, location *time.Location, policy FreezePolicy, logger *log.Logger) *StreakService {
	if policy != FreezePolicyInline {
		policy = FreezePolicyPreviewOnly
	}
	return &StreakService{
		DB:       db,
		Location: location,
		Policy:   policy,
		Logger:   logger,
		Now:      time.Now,
	}
}

// Today is the current calendar day in the streak timezone, normalized
// to midnight UTC so stored dates compare cleanly across dialects.
func (ss *StreakService) Today() time.Time {
	now := ss.Now().In(ss.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func diffDays(today, lastActive time.Time) int {
	return int(truncateDay(today).Sub(truncateDay(lastActive)).Hours() / 24)
}

// RecordActivity registers today's activity for the user. Returns true
// when streak state changed, false when today was already recorded.
func (ss *StreakService) RecordActivity(ctx context.Context, userID string) (bool, error) {
	var updated bool
	err := ss.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		updated, err = ss.RecordActivityTx(tx, userID)
		return err
	})
	return updated, err
}

// RecordActivityTx is RecordActivity running inside a caller-owned
// transaction; the lesson-completion path uses it so streak writes share
// the tracker's transactional boundary.
func (ss *StreakService) RecordActivityTx(tx *gorm.DB, userID string) (bool, error) {
	today := ss.Today()

	var streak models.Streak
	err := tx.Where("user_id = ?", userID).First(&streak).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		streak = models.Streak{
			UserID:          userID,
			CurrentStreak:   1,
			LongestStreak:   1,
			StartDate:       today,
			LastActiveAt:    today,
			FreezeAvailable: 0,
		}
		if err := tx.Create(&streak).Error; err != nil {
			return false, err
		}
		return true, tx.Create(&models.StreakDay{
			StreakID:     streak.StreakID,
			UserID:       userID,
			ActivityDate: today,
		}).Error
	}
	if err != nil {
		return false, err
	}

	gap := diffDays(today, streak.LastActiveAt)
	if gap == 0 {
		return false, nil
	}

	frozen := false
	switch {
	case gap == 1:
		streak.CurrentStreak++
	case gap == 2 && ss.Policy == FreezePolicyInline && streak.FreezeAvailable > 0:
		streak.FreezeAvailable--
		streak.CurrentStreak++
		frozen = true
	default:
		streak.CurrentStreak = 1
		streak.StartDate = today
	}

	if streak.CurrentStreak > streak.LongestStreak {
		streak.LongestStreak = streak.CurrentStreak
	}
	streak.LastActiveAt = today

	if err := tx.Save(&streak).Error; err != nil {
		return false, err
	}

	if frozen {
		// The missed day is backfilled as covered by the credit.
		if err := tx.Create(&models.StreakDay{
			StreakID:     streak.StreakID,
			UserID:       userID,
			ActivityDate: today.AddDate(0, 0, -1),
			IsFrozen:     true,
		}).Error; err != nil {
			return false, err
		}
	}

	return true, tx.Create(&models.StreakDay{
		StreakID:     streak.StreakID,
		UserID:       userID,
		ActivityDate: today,
	}).Error
}

// PreviewAndApplyFreeze reconciles a gap in activity against the user's
// freeze credits. When the gap is affordable it spends exactly gap-1
// credits, backfills the skipped days as frozen, and keeps the streak
// alive; otherwise the streak drops to zero.
func (ss *StreakService) PreviewAndApplyFreeze(ctx context.Context, userID string) (StreakPreview, error) {
	today := ss.Today()

	var preview StreakPreview
	err := ss.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var streak models.Streak
		err := tx.Where("user_id = ?", userID).First(&streak).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			preview = StreakPreview{}
			return nil
		}
		if err != nil {
			return err
		}

		gap := diffDays(today, streak.LastActiveAt)
		if gap <= 1 {
			preview = StreakPreview{CurrentStreak: streak.CurrentStreak}
			return nil
		}

		missed := gap - 1
		if streak.FreezeAvailable < missed {
			streak.CurrentStreak = 0
			if err := tx.Save(&streak).Error; err != nil {
				return err
			}
			preview = StreakPreview{}
			return nil
		}

		lastActive := truncateDay(streak.LastActiveAt)
		for i := 1; i <= missed; i++ {
			if err := tx.Create(&models.StreakDay{
				StreakID:     streak.StreakID,
				UserID:       userID,
				ActivityDate: lastActive.AddDate(0, 0, i),
				IsFrozen:     true,
			}).Error; err != nil {
				return err
			}
		}

		streak.FreezeAvailable -= missed
		streak.LastActiveAt = lastActive.AddDate(0, 0, missed)
		if err := tx.Save(&streak).Error; err != nil {
			return err
		}

		preview = StreakPreview{CurrentStreak: streak.CurrentStreak, UsedFreezeYesterday: true}
		return nil
	})
	return preview, err
}

// GrantFreeze adds the fixed recovery amount of freeze credits. Users
// without a streak row get one created so the credits have somewhere to
// live.
func (ss *StreakService) GrantFreeze(ctx context.Context, userID string) (int, error) {
	var available int
	err := ss.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var streak models.Streak
		err := tx.Where("user_id = ?", userID).First(&streak).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			streak = models.Streak{
				UserID:          userID,
				FreezeAvailable: FreezeGrantAmount,
				StartDate:       ss.Today(),
				LastActiveAt:    ss.Today(),
			}
			if err := tx.Create(&streak).Error; err != nil {
				return err
			}
			available = streak.FreezeAvailable
			return nil
		}
		if err != nil {
			return err
		}

		streak.FreezeAvailable += FreezeGrantAmount
		if err := tx.Save(&streak).Error; err != nil {
			return err
		}
		available = streak.FreezeAvailable
		return nil
	})
	return available, err
}

// GetStreakInfo returns the current streak and the last seven days as
// weekday-labelled entries.
func (ss *StreakService) GetStreakInfo(ctx context.Context, userID string) (StreakInfo, error) {
	today := ss.Today()
	sevenDaysAgo := today.AddDate(0, 0, -6)

	var streak models.Streak
	current := 0
	err := ss.DB.WithContext(ctx).Where("user_id = ?", userID).First(&streak).Error
	if err == nil {
		current = streak.CurrentStreak
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return StreakInfo{}, err
	}

	var streakDays []models.StreakDay
	err = ss.DB.WithContext(ctx).
		Where("user_id = ? AND activity_date BETWEEN ? AND ?", userID, sevenDaysAgo, today).
		Order("activity_date ASC").
		Find(&streakDays).Error
	if err != nil {
		return StreakInfo{}, err
	}

	days := make([]StreakDayView, 0, len(streakDays))
	for _, d := range streakDays {
		days = append(days, StreakDayView{
			Day:      weekdayLabels[int(truncateDay(d.ActivityDate).Weekday())],
			IsFrozen: d.IsFrozen,
		})
	}

	return StreakInfo{CurrentStreak: current, Days: days}, nil
}

// GetMonthlyStreak lists the recorded streak days of one calendar month.
func (ss *StreakService) GetMonthlyStreak(ctx context.Context, userID string, month time.Month, year int) ([]MonthlyStreakDay, error) {
	startOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	endOfMonth := startOfMonth.AddDate(0, 1, -1)

	var streakDays []models.StreakDay
	err := ss.DB.WithContext(ctx).
		Where("user_id = ? AND activity_date BETWEEN ? AND ?", userID, startOfMonth, endOfMonth).
		Order("activity_date ASC").
		Find(&streakDays).Error
	if err != nil {
		return nil, err
	}

	result := make([]MonthlyStreakDay, 0, len(streakDays))
	for _, d := range streakDays {
		result = append(result, MonthlyStreakDay{Date: truncateDay(d.ActivityDate), IsFrozen: d.IsFrozen})
	}
	return result, nil
}
