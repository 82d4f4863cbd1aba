package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"lingo-backend/models"
	"lingo-backend/pkg/queue"

	"gorm.io/gorm"
)

// EnergyClient is the user-service collaborator gating lesson starts.
type EnergyClient interface {
	CheckEnergy(ctx context.Context, userID string) (bool, error)
}

// DoneLessonRequest is the lesson-completion payload.
type DoneLessonRequest struct {
	UserLessonProgressID string  `json:"userLessonProgressId"`
	TimeSpent            float64 `json:"timeSpent"`
	AccuracyRate         float64 `json:"accuracyRate"`
	KnowledgePoints      int     `json:"kp"`
}

// DoneLessonResult reports whether the completion advanced the streak.
type DoneLessonResult struct {
	IsStreakCreated bool `json:"isStreakCreated"`
}

// StartLessonResult reports whether the learner had energy to start.
type StartLessonResult struct {
	HasEnergy bool `json:"hasEnergy"`
}

// GameLevelProgress is the per-level completion summary.
type GameLevelProgress struct {
	GameLevelID   string `json:"gameLevelId"`
	StageProgress int    `json:"stageProgress"`
	TotalStage    int    `json:"totalStage"`
	IsStarted     bool   `json:"isStarted"`
}

// CurrentGameLevel is the level containing the user's active stage.
type CurrentGameLevel struct {
	GameLevelID string `json:"gameLevelId"`
}

type pendingEvent struct {
	queueName string
	payload   interface{}
}

// ProgressService owns UserStageProgress and UserLessonProgress and
// drives the lesson-completion pathway.
type ProgressService struct {
	DB         *gorm.DB
	Curriculum *CurriculumService
	Streaks    *StreakService
	Events     queue.Publisher
	Energy     EnergyClient
	Logger     *log.Logger
}

func NewProgressService(db *gorm.DB, curriculum *CurriculumService, streaks *StreakService, events queue.Publisher, energy EnergyClient, logger *log.Logger) *ProgressService {
	return &ProgressService{
		DB:         db,
		Curriculum: curriculum,
		Streaks:    streaks,
		Events:     events,
		Energy:     energy,
		Logger:     logger,
	}
}

// lockUser serializes concurrent completion transactions for one user.
// Advisory locks exist only on Postgres; the sqlite test databases run
// single-connection anyway.
func lockUser(tx *gorm.DB, userID string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", userID).Error
}

func (ps *ProgressService) publish(ctx context.Context, events []pendingEvent) {
	if ps.Events == nil {
		return
	}
	for _, ev := range events {
		body, err := json.Marshal(ev.payload)
		if err == nil {
			err = ps.Events.Publish(ctx, ev.queueName, body)
		}
		if err != nil && ps.Logger != nil {
			ps.Logger.Printf("failed to publish %s: %v", ev.queueName, err)
		}
	}
}

// DoneLesson completes a lesson attempt: streak update, completion
// marks, next-lesson resolution and progress-row advancement, all in one
// transaction. Notifications are sent only after the transaction
// commits, so a rollback never leaks an event.
func (ps *ProgressService) DoneLesson(ctx context.Context, userID string, req DoneLessonRequest) (DoneLessonResult, error) {
	var streakUpdated bool
	var pending []pendingEvent

	err := ps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}

		var progress models.UserLessonProgress
		missing := false
		err := tx.First(&progress, "user_lesson_progress_id = ?", req.UserLessonProgressID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// A missing progress row is non-fatal: the streak still
			// counts the activity.
			missing = true
		} else if err != nil {
			return err
		}

		donePayload := map[string]interface{}{"userId": userID, "kp": req.KnowledgePoints}
		pending = append(pending, pendingEvent{
			queueName: queue.QueueLessonProgressDone,
			payload:   donePayload,
		})

		streakUpdated, err = ps.Streaks.RecordActivityTx(tx, userID)
		if err != nil {
			return err
		}

		if missing || progress.CompletedAt != nil {
			// Duplicate completion calls are idempotent no-ops.
			return nil
		}

		now := time.Now()
		progress.CompletedAt = &now
		progress.TimeSpent = req.TimeSpent
		progress.AccuracyRate = req.AccuracyRate
		if err := tx.Save(&progress).Error; err != nil {
			return err
		}

		var stageProgress models.UserStageProgress
		if err := tx.First(&stageProgress, "user_stage_progress_id = ?", progress.UserStageProgressID).Error; err != nil {
			return err
		}

		// Resolve against the same transaction so the read and the
		// conditional writes below see one snapshot.
		store := ps.Curriculum.WithDB(tx)
		if lesson, err := store.GetLesson(ctx, progress.LessonID); err != nil {
			return err
		} else if lesson != nil {
			donePayload["rubyReward"] = lesson.LessonReward
		}

		resolver := NewNextLessonResolver(store)
		next, err := resolver.Resolve(ctx, progress.LessonID)
		if err != nil {
			return err
		}

		if stageProgress.StageID != next.StageID {
			if err := tx.Model(&models.UserStageProgress{}).
				Where("user_stage_progress_id = ?", stageProgress.UserStageProgressID).
				Update("is_done", true).Error; err != nil {
				return err
			}

			if next.StageID == "" {
				// Curriculum exhausted.
				return nil
			}

			stageProgress, err = findOrCreateActiveStageProgress(tx, userID, next.StageID)
			if err != nil {
				return err
			}
		}

		return createLessonProgressIfAbsent(tx, stageProgress.UserStageProgressID, next.LessonID)
	})
	if err != nil {
		return DoneLessonResult{}, err
	}

	ps.publish(ctx, pending)
	return DoneLessonResult{IsStreakCreated: streakUpdated}, nil
}

// findOrCreateActiveStageProgress guards against duplicate active
// attempts for the same (user, stage) under concurrent completions.
func findOrCreateActiveStageProgress(tx *gorm.DB, userID, stageID string) (models.UserStageProgress, error) {
	var stageProgress models.UserStageProgress
	err := tx.Where("user_id = ? AND stage_id = ? AND is_done = ?", userID, stageID, false).
		Order("created_at DESC").
		First(&stageProgress).Error
	if err == nil {
		return stageProgress, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.UserStageProgress{}, err
	}

	stageProgress = models.UserStageProgress{UserID: userID, StageID: stageID}
	return stageProgress, tx.Create(&stageProgress).Error
}

func createLessonProgressIfAbsent(tx *gorm.DB, stageProgressID, lessonID string) error {
	var count int64
	err := tx.Model(&models.UserLessonProgress{}).
		Where("user_stage_progress_id = ? AND lesson_id = ?", stageProgressID, lessonID).
		Count(&count).Error
	if err != nil || count > 0 {
		return err
	}

	return tx.Create(&models.UserLessonProgress{
		UserStageProgressID: stageProgressID,
		LessonID:            lessonID,
	}).Error
}

// StartLesson checks the energy collaborator and, when allowed, notifies
// the user service that a lesson started.
func (ps *ProgressService) StartLesson(ctx context.Context, userID string) (StartLessonResult, error) {
	hasEnergy, err := ps.Energy.CheckEnergy(ctx, userID)
	if err != nil {
		return StartLessonResult{}, err
	}
	if !hasEnergy {
		return StartLessonResult{HasEnergy: false}, nil
	}

	ps.publish(ctx, []pendingEvent{{
		queueName: queue.QueueLessonProgressStarted,
		payload:   map[string]string{"userId": userID},
	}})
	return StartLessonResult{HasEnergy: true}, nil
}

// InitStageProgress resets a user's progress to the very first stage and
// lesson of the curriculum. Called on account creation and lazily when a
// user has no progress rows at query time.
func (ps *ProgressService) InitStageProgress(ctx context.Context, userID string) error {
	started, err := ps.Curriculum.GetStartedStage(ctx, "")
	if err != nil {
		return err
	}
	if started.StageID == "" {
		// Empty curriculum; nothing to seed.
		return nil
	}

	return ps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteUserProgress(tx, userID); err != nil {
			return err
		}

		stageProgress := models.UserStageProgress{UserID: userID, StageID: started.StageID}
		if err := tx.Create(&stageProgress).Error; err != nil {
			return err
		}

		if started.LessonID == "" {
			return nil
		}
		return tx.Create(&models.UserLessonProgress{
			UserStageProgressID: stageProgress.UserStageProgressID,
			LessonID:            started.LessonID,
		}).Error
	})
}

func deleteUserProgress(tx *gorm.DB, userID string) error {
	err := tx.Where("user_stage_progress_id IN (?)",
		tx.Model(&models.UserStageProgress{}).Select("user_stage_progress_id").Where("user_id = ?", userID),
	).Delete(&models.UserLessonProgress{}).Error
	if err != nil {
		return err
	}
	return tx.Where("user_id = ?", userID).Delete(&models.UserStageProgress{}).Error
}

func (ps *ProgressService) ensureInitialized(ctx context.Context, userID string) error {
	var count int64
	err := ps.DB.WithContext(ctx).Model(&models.UserStageProgress{}).
		Where("user_id = ?", userID).Count(&count).Error
	if err != nil || count > 0 {
		return err
	}
	return ps.InitStageProgress(ctx, userID)
}

// GetUserCurrentGameLevelProgress finds the level containing the user's
// active stage attempt.
func (ps *ProgressService) GetUserCurrentGameLevelProgress(ctx context.Context, userID string) (CurrentGameLevel, error) {
	if err := ps.ensureInitialized(ctx, userID); err != nil {
		return CurrentGameLevel{}, err
	}

	levels, err := ps.Curriculum.GetGameLevelsWithStages(ctx)
	if err != nil {
		return CurrentGameLevel{}, err
	}

	var stageProgress models.UserStageProgress
	err = ps.DB.WithContext(ctx).
		Where("user_id = ? AND is_done = ?", userID, false).
		Order("created_at DESC").
		First(&stageProgress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return CurrentGameLevel{}, nil
	}
	if err != nil {
		return CurrentGameLevel{}, err
	}

	for _, level := range levels {
		for _, stageID := range level.StageIDs {
			if stageID == stageProgress.StageID {
				return CurrentGameLevel{GameLevelID: level.GameLevelID}, nil
			}
		}
	}
	return CurrentGameLevel{}, nil
}

// GetGameLevelsProgress summarizes stage completion per level.
func (ps *ProgressService) GetGameLevelsProgress(ctx context.Context, userID string) ([]GameLevelProgress, error) {
	if err := ps.ensureInitialized(ctx, userID); err != nil {
		return nil, err
	}

	levels, err := ps.Curriculum.GetGameLevelsWithStages(ctx)
	if err != nil {
		return nil, err
	}

	var userStages []models.UserStageProgress
	if err := ps.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&userStages).Error; err != nil {
		return nil, err
	}

	result := make([]GameLevelProgress, 0, len(levels))
	for _, level := range levels {
		inLevel := make(map[string]bool, len(level.StageIDs))
		for _, stageID := range level.StageIDs {
			inLevel[stageID] = true
		}

		done := 0
		started := false
		for _, stage := range userStages {
			if !inLevel[stage.StageID] {
				continue
			}
			started = true
			if stage.IsDone {
				done++
			}
		}

		result = append(result, GameLevelProgress{
			GameLevelID:   level.GameLevelID,
			StageProgress: done,
			TotalStage:    len(level.StageIDs),
			IsStarted:     started,
		})
	}
	return result, nil
}

// GetGameStagesProgress returns the user's stage attempts with their
// lesson attempts, optionally restricted to a set of stages.
func (ps *ProgressService) GetGameStagesProgress(ctx context.Context, userID string, stageIDs []string) ([]models.UserStageProgress, error) {
	if err := ps.ensureInitialized(ctx, userID); err != nil {
		return nil, err
	}

	query := ps.DB.WithContext(ctx).
		Preload("LessonProgress").
		Where("user_id = ?", userID)
	if len(stageIDs) > 0 {
		query = query.Where("stage_id IN ?", stageIDs)
	}

	var progress []models.UserStageProgress
	err := query.Order("created_at ASC").Find(&progress).Error
	return progress, err
}

// DeleteStageProgress removes all progress attached to a deleted stage.
// Compensating cleanup; the relational store does not cascade across
// service boundaries.
func (ps *ProgressService) DeleteStageProgress(ctx context.Context, stageID string) error {
	return ps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_stage_progress_id IN (?)",
			tx.Model(&models.UserStageProgress{}).Select("user_stage_progress_id").Where("stage_id = ?", stageID),
		).Delete(&models.UserLessonProgress{}).Error
		if err != nil {
			return err
		}
		return tx.Where("stage_id = ?", stageID).Delete(&models.UserStageProgress{}).Error
	})
}

// DeleteLessonProgress removes all progress rows for a deleted lesson.
func (ps *ProgressService) DeleteLessonProgress(ctx context.Context, lessonID string) error {
	return ps.DB.WithContext(ctx).Where("lesson_id = ?", lessonID).Delete(&models.UserLessonProgress{}).Error
}
