package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserStageProgress is one attempt of a user at a stage. The active
// attempt is the most recent row with IsDone=false.
type UserStageProgress struct {
	UserStageProgressID string `gorm:"primaryKey" json:"userStageProgressId"`
	UserID              string `gorm:"index:idx_user_stage" json:"userId"`
	StageID             string `gorm:"index:idx_user_stage" json:"stageId"`
	IsDone              bool   `gorm:"default:false" json:"isDone"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
	LessonProgress      []UserLessonProgress `gorm:"foreignKey:UserStageProgressID" json:"userLessonProgress,omitempty"`
}

func (p *UserStageProgress) BeforeCreate(tx *gorm.DB) error {
	if p.UserStageProgressID == "" {
		p.UserStageProgressID = uuid.NewString()
	}
	return nil
}

// UserLessonProgress is one lesson attempt within a stage attempt.
// Mutated exactly once, on completion.
type UserLessonProgress struct {
	UserLessonProgressID string     `gorm:"primaryKey" json:"userLessonProgressId"`
	UserStageProgressID  string     `gorm:"uniqueIndex:idx_stage_progress_lesson" json:"userStageProgressId"`
	LessonID             string     `gorm:"uniqueIndex:idx_stage_progress_lesson" json:"lessonId"`
	CompletedAt          *time.Time `json:"completedAt"`
	TimeSpent            float64    `json:"timeSpent"`
	AccuracyRate         float64    `json:"accuracyRate"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (p *UserLessonProgress) BeforeCreate(tx *gorm.DB) error {
	if p.UserLessonProgressID == "" {
		p.UserLessonProgressID = uuid.NewString()
	}
	return nil
}
