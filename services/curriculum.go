package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"lingo-backend/models"
	"lingo-backend/pkg/cache"
	"lingo-backend/pkg/queue"

	"gorm.io/gorm"
)

// CurriculumStore is the read surface of the curriculum hierarchy used by
// the resolver and the progress tracker. Absent rows are reported as
// (nil, nil); the empty-string sentinel exists only at the wire boundary.
type CurriculumStore interface {
	// GetLevel returns the level with the given ID, or the level with the
	// lowest order when levelID is empty.
	GetLevel(ctx context.Context, levelID string) (*models.GameLevel, error)
	GetStage(ctx context.Context, stageID string) (*models.Stage, error)
	GetLesson(ctx context.Context, lessonID string) (*models.Lesson, error)
	ListActiveStages(ctx context.Context, levelID string) ([]models.Stage, error)
	ListLessons(ctx context.Context, stageID string) ([]models.Lesson, error)
	NextLessonInStage(ctx context.Context, stageID string, afterOrder int) (*models.Lesson, error)
	NextActiveStage(ctx context.Context, levelID string, afterOrder int) (*models.Stage, error)
	NextLevel(ctx context.Context, afterOrder int) (*models.GameLevel, error)
	// FirstLessonInLevel returns the lesson with the smallest
	// (stage_order, lesson_order) in the level. Inactive stages are not
	// filtered here; the legacy next-level fallback never did.
	FirstLessonInLevel(ctx context.Context, levelID string) (*models.Lesson, error)
}

// StartedStage points a fresh learner at the first stage and lesson.
type StartedStage struct {
	StageID  string `json:"stageId"`
	LessonID string `json:"lessonId"`
}

// LevelStages is one entry of the levels-with-stages snapshot.
type LevelStages struct {
	GameLevelID string   `json:"gameLevelId"`
	StageIDs    []string `json:"stageIds"`
}

const levelsWithStagesCacheKey = "curriculum:levels_with_stages"

type CurriculumService struct {
	DB     *gorm.DB
	Cache  *cache.RedisClient
	Events queue.Publisher
	Logger *log.Logger
}

func NewCurriculumService(db *gorm.DB, redis *cache.RedisClient, events queue.Publisher, logger *log.Logger) *CurriculumService {
	return &CurriculumService{DB: db, Cache: redis, Events: events, Logger: logger}
}

var _ CurriculumStore = (*CurriculumService)(nil)

// WithDB returns a view of the store bound to the given handle, so
// callers can run curriculum reads inside their own transaction.
func (cs *CurriculumService) WithDB(db *gorm.DB) *CurriculumService {
	clone := *cs
	clone.DB = db
	return &clone
}

func (cs *CurriculumService) GetLevel(ctx context.Context, levelID string) (*models.GameLevel, error) {
	var level models.GameLevel
	query := cs.DB.WithContext(ctx)
	var err error
	if levelID != "" {
		err = query.First(&level, "game_level_id = ?", levelID).Error
	} else {
		err = query.Order("level_order ASC, game_level_id ASC").First(&level).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &level, nil
}

func (cs *CurriculumService) GetStage(ctx context.Context, stageID string) (*models.Stage, error) {
	var stage models.Stage
	err := cs.DB.WithContext(ctx).First(&stage, "stage_id = ?", stageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stage, nil
}

func (cs *CurriculumService) GetLesson(ctx context.Context, lessonID string) (*models.Lesson, error) {
	var lesson models.Lesson
	err := cs.DB.WithContext(ctx).First(&lesson, "lesson_id = ?", lessonID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (cs *CurriculumService) ListActiveStages(ctx context.Context, levelID string) ([]models.Stage, error) {
	var stages []models.Stage
	err := cs.DB.WithContext(ctx).
		Where("game_level_id = ? AND is_active = ?", levelID, true).
		Order("stage_order ASC, stage_id ASC").
		Find(&stages).Error
	return stages, err
}

func (cs *CurriculumService) ListLessons(ctx context.Context, stageID string) ([]models.Lesson, error) {
	var lessons []models.Lesson
	err := cs.DB.WithContext(ctx).
		Where("stage_id = ?", stageID).
		Order("lesson_order ASC, lesson_id ASC").
		Find(&lessons).Error
	return lessons, err
}

func (cs *CurriculumService) NextLessonInStage(ctx context.Context, stageID string, afterOrder int) (*models.Lesson, error) {
	var lesson models.Lesson
	err := cs.DB.WithContext(ctx).
		Where("stage_id = ? AND lesson_order > ?", stageID, afterOrder).
		Order("lesson_order ASC, lesson_id ASC").
		First(&lesson).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (cs *CurriculumService) NextActiveStage(ctx context.Context, levelID string, afterOrder int) (*models.Stage, error) {
	var stage models.Stage
	err := cs.DB.WithContext(ctx).
		Where("game_level_id = ? AND is_active = ? AND stage_order > ?", levelID, true, afterOrder).
		Order("stage_order ASC, stage_id ASC").
		First(&stage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stage, nil
}

func (cs *CurriculumService) NextLevel(ctx context.Context, afterOrder int) (*models.GameLevel, error) {
	var level models.GameLevel
	err := cs.DB.WithContext(ctx).
		Where("level_order > ?", afterOrder).
		Order("level_order ASC, game_level_id ASC").
		First(&level).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &level, nil
}

func (cs *CurriculumService) FirstLessonInLevel(ctx context.Context, levelID string) (*models.Lesson, error) {
	var lessons []models.Lesson
	err := cs.DB.WithContext(ctx).
		Joins("JOIN stages ON stages.stage_id = lessons.stage_id").
		Where("stages.game_level_id = ?", levelID).
		Order("stages.stage_order ASC, lessons.lesson_order ASC, lessons.lesson_id ASC").
		Limit(1).
		Find(&lessons).Error
	if err != nil || len(lessons) == 0 {
		return nil, err
	}
	return &lessons[0], nil
}

// GetStartedStage returns the entry point of a level: its first active
// stage and that stage's first lesson. An empty levelID means the very
// first level of the curriculum.
func (cs *CurriculumService) GetStartedStage(ctx context.Context, levelID string) (StartedStage, error) {
	level, err := cs.GetLevel(ctx, levelID)
	if err != nil || level == nil {
		return StartedStage{}, err
	}

	stages, err := cs.ListActiveStages(ctx, level.GameLevelID)
	if err != nil || len(stages) == 0 {
		return StartedStage{}, err
	}

	lessons, err := cs.ListLessons(ctx, stages[0].StageID)
	if err != nil || len(lessons) == 0 {
		return StartedStage{StageID: stages[0].StageID}, err
	}

	return StartedStage{StageID: stages[0].StageID, LessonID: lessons[0].LessonID}, nil
}

// GetGameLevels lists all levels ordered by rank.
func (cs *CurriculumService) GetGameLevels(ctx context.Context) ([]models.GameLevel, error) {
	var levels []models.GameLevel
	err := cs.DB.WithContext(ctx).Order("level_order ASC, game_level_id ASC").Find(&levels).Error
	return levels, err
}

// GetGameLevelStages lists a level's stages with their lessons. Inactive
// stages are included only for admin views.
func (cs *CurriculumService) GetGameLevelStages(ctx context.Context, levelID string, includeInactive bool) ([]models.Stage, error) {
	query := cs.DB.WithContext(ctx).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("lesson_order ASC, lesson_id ASC")
		}).
		Where("game_level_id = ?", levelID)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var stages []models.Stage
	err := query.Order("stage_order ASC, stage_id ASC").Find(&stages).Error
	return stages, err
}

// GetGameLevelsWithStages returns the levels-with-active-stages snapshot
// used by the progress aggregates. Levels without active stages are
// filtered out. The snapshot is cached; curriculum writes invalidate it.
func (cs *CurriculumService) GetGameLevelsWithStages(ctx context.Context) ([]LevelStages, error) {
	if cs.Cache != nil {
		if raw, err := cs.Cache.Get(ctx, levelsWithStagesCacheKey); err == nil {
			var cached []LevelStages
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return cached, nil
			}
		} else if !cache.IsNil(err) && cs.Logger != nil {
			cs.Logger.Printf("curriculum cache read failed: %v", err)
		}
	}

	var levels []models.GameLevel
	err := cs.DB.WithContext(ctx).
		Preload("Stages", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("stage_order ASC, stage_id ASC")
		}).
		Order("level_order ASC, game_level_id ASC").
		Find(&levels).Error
	if err != nil {
		return nil, err
	}

	result := make([]LevelStages, 0, len(levels))
	for _, level := range levels {
		if len(level.Stages) == 0 {
			continue
		}
		entry := LevelStages{GameLevelID: level.GameLevelID}
		for _, stage := range level.Stages {
			entry.StageIDs = append(entry.StageIDs, stage.StageID)
		}
		result = append(result, entry)
	}

	if cs.Cache != nil {
		if raw, err := json.Marshal(result); err == nil {
			if err := cs.Cache.Set(ctx, levelsWithStagesCacheKey, raw, 10*time.Minute); err != nil && cs.Logger != nil {
				cs.Logger.Printf("curriculum cache write failed: %v", err)
			}
		}
	}

	return result, nil
}

func (cs *CurriculumService) invalidateCache(ctx context.Context) {
	if cs.Cache == nil {
		return
	}
	if err := cs.Cache.Delete(ctx, levelsWithStagesCacheKey); err != nil && cs.Logger != nil {
		cs.Logger.Printf("curriculum cache invalidation failed: %v", err)
	}
}

func (cs *CurriculumService) emit(ctx context.Context, queueName string, payload interface{}) {
	if cs.Events == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err == nil {
		err = cs.Events.Publish(ctx, queueName, body)
	}
	if err != nil && cs.Logger != nil {
		cs.Logger.Printf("failed to publish %s: %v", queueName, err)
	}
}

// AddGameLevel appends a level at the end of the ordering.
func (cs *CurriculumService) AddGameLevel(ctx context.Context, name, description string) (*models.GameLevel, error) {
	var count int64
	if err := cs.DB.WithContext(ctx).Model(&models.GameLevel{}).Count(&count).Error; err != nil {
		return nil, err
	}

	level := models.GameLevel{
		GameLevelName:        name,
		GameLevelDescription: description,
		LevelOrder:           int(count) + 1,
	}
	if err := cs.DB.WithContext(ctx).Create(&level).Error; err != nil {
		return nil, err
	}

	cs.invalidateCache(ctx)
	return &level, nil
}

func (cs *CurriculumService) UpdateGameLevel(ctx context.Context, levelID, name, description string) error {
	err := cs.DB.WithContext(ctx).Model(&models.GameLevel{}).
		Where("game_level_id = ?", levelID).
		Updates(map[string]interface{}{
			"game_level_name":        name,
			"game_level_description": description,
		}).Error
	if err == nil {
		cs.invalidateCache(ctx)
	}
	return err
}

func (cs *CurriculumService) DeleteGameLevel(ctx context.Context, levelID string) error {
	err := cs.DB.WithContext(ctx).Delete(&models.GameLevel{}, "game_level_id = ?", levelID).Error
	if err == nil {
		cs.invalidateCache(ctx)
	}
	return err
}

// UpdateGameLevelOrder rewrites level_order for the full ID set, 1-based,
// in the order given. Runs atomically.
func (cs *CurriculumService) UpdateGameLevelOrder(ctx context.Context, levelIDs []string) error {
	err := cs.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for index, levelID := range levelIDs {
			if err := tx.Model(&models.GameLevel{}).
				Where("game_level_id = ?", levelID).
				Update("level_order", index+1).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		cs.invalidateCache(ctx)
	}
	return err
}

// AddStage creates a stage at the end of its level's ordering together
// with the fixed two-lesson template: a flashcard lesson followed by a
// reward lesson.
func (cs *CurriculumService) AddStage(ctx context.Context, levelID, name string) (*models.Stage, error) {
	var stage models.Stage
	err := cs.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Stage{}).Where("game_level_id = ?", levelID).Count(&count).Error; err != nil {
			return err
		}

		stage = models.Stage{
			GameLevelID: levelID,
			StageName:   name,
			StageOrder:  int(count) + 1,
			IsActive:    true,
			Lessons: []models.Lesson{
				{
					LessonName:   "Flashcard practice",
					LessonType:   models.LessonTypeFlashcard,
					LessonOrder:  1,
					LessonReward: 5,
				},
				{
					LessonName:   "Claim reward",
					LessonType:   models.LessonTypeReward,
					LessonOrder:  2,
					LessonReward: 100,
				},
			},
		}
		return tx.Create(&stage).Error
	})
	if err != nil {
		return nil, err
	}

	cs.invalidateCache(ctx)
	return &stage, nil
}

func (cs *CurriculumService) UpdateStage(ctx context.Context, stageID, name string) error {
	err := cs.DB.WithContext(ctx).Model(&models.Stage{}).
		Where("stage_id = ?", stageID).
		Update("stage_name", name).Error
	if err == nil {
		cs.invalidateCache(ctx)
	}
	return err
}

// DeleteStage removes a stage and notifies the progress side so dependent
// progress rows get cleaned up.
func (cs *CurriculumService) DeleteStage(ctx context.Context, stageID string) error {
	err := cs.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Lesson{}, "stage_id = ?", stageID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Stage{}, "stage_id = ?", stageID).Error
	})
	if err != nil {
		return err
	}

	cs.invalidateCache(ctx)
	cs.emit(ctx, queue.QueueStageDeleted, map[string]string{"stageId": stageID})
	return nil
}

func (cs *CurriculumService) UpdateStageOrder(ctx context.Context, levelID string, stageIDs []string) error {
	err := cs.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for index, stageID := range stageIDs {
			if err := tx.Model(&models.Stage{}).
				Where("stage_id = ? AND game_level_id = ?", stageID, levelID).
				Update("stage_order", index+1).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		cs.invalidateCache(ctx)
	}
	return err
}

func (cs *CurriculumService) UpdateStageActive(ctx context.Context, stageID string, isActive bool) error {
	err := cs.DB.WithContext(ctx).Model(&models.Stage{}).
		Where("stage_id = ?", stageID).
		Update("is_active", isActive).Error
	if err == nil {
		cs.invalidateCache(ctx)
	}
	return err
}

// LessonRequest is the admin payload for creating or updating a lesson.
type LessonRequest struct {
	LessonName   string `json:"lessonName"`
	LessonType   string `json:"lessonType"`
	LessonReward int    `json:"lessonReward"`
}

// AddLesson inserts a lesson just before the stage's trailing reward
// lesson: the last lesson is pushed one slot down and the new one takes
// its place.
func (cs *CurriculumService) AddLesson(ctx context.Context, stageID string, req LessonRequest) (*models.Lesson, error) {
	var lesson models.Lesson
	err := cs.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Lesson{}).Where("stage_id = ?", stageID).Count(&count).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Lesson{}).
			Where("stage_id = ? AND lesson_order = ?", stageID, count).
			Update("lesson_order", count+1).Error; err != nil {
			return err
		}

		lesson = models.Lesson{
			StageID:      stageID,
			LessonName:   req.LessonName,
			LessonType:   req.LessonType,
			LessonOrder:  int(count),
			LessonReward: req.LessonReward,
		}
		return tx.Create(&lesson).Error
	})
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (cs *CurriculumService) UpdateLesson(ctx context.Context, lessonID string, req LessonRequest) error {
	return cs.DB.WithContext(ctx).Model(&models.Lesson{}).
		Where("lesson_id = ?", lessonID).
		Updates(map[string]interface{}{
			"lesson_name":   req.LessonName,
			"lesson_type":   req.LessonType,
			"lesson_reward": req.LessonReward,
		}).Error
}

// DeleteLesson removes a lesson and notifies the progress side.
func (cs *CurriculumService) DeleteLesson(ctx context.Context, lessonID string) error {
	if err := cs.DB.WithContext(ctx).Delete(&models.Lesson{}, "lesson_id = ?", lessonID).Error; err != nil {
		return err
	}

	cs.emit(ctx, queue.QueueLessonDeleted, map[string]string{"lessonId": lessonID})
	return nil
}

func (cs *CurriculumService) UpdateLessonOrder(ctx context.Context, stageID string, lessonIDs []string) error {
	return cs.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for index, lessonID := range lessonIDs {
			if err := tx.Model(&models.Lesson{}).
				Where("lesson_id = ? AND stage_id = ?", lessonID, stageID).
				Update("lesson_order", index+1).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
