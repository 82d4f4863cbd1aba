package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GameLevel struct {
	GameLevelID          string `gorm:"primaryKey" json:"gameLevelId"`
	GameLevelName        string `json:"gameLevelName"`
	GameLevelDescription string `json:"gameLevelDescription"`
	LevelOrder           int    `gorm:"index" json:"levelOrder"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Stages               []Stage `gorm:"foreignKey:GameLevelID" json:"stages,omitempty"`
}

func (l *GameLevel) BeforeCreate(tx *gorm.DB) error {
	if l.GameLevelID == "" {
		l.GameLevelID = uuid.NewString()
	}
	return nil
}

type Stage struct {
	StageID     string `gorm:"primaryKey" json:"stageId"`
	GameLevelID string `gorm:"index" json:"gameLevelId"`
	StageName   string `json:"stageName"`
	StageOrder  int    `json:"stageOrder"`
	IsActive    bool   `json:"isActive"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Lessons     []Lesson `gorm:"foreignKey:StageID" json:"lessons,omitempty"`
}

func (s *Stage) BeforeCreate(tx *gorm.DB) error {
	if s.StageID == "" {
		s.StageID = uuid.NewString()
	}
	return nil
}

// Lesson types used by the fixed template for new stages.
const (
	LessonTypeFlashcard = "flashcard"
	LessonTypeReward    = "reward"
	LessonTypeQuiz      = "quiz"
)

type Lesson struct {
	LessonID     string `gorm:"primaryKey" json:"lessonId"`
	StageID      string `gorm:"index" json:"stageId"`
	LessonName   string `json:"lessonName"`
	LessonType   string `json:"lessonType"`
	LessonOrder  int    `json:"lessonOrder"`
	LessonReward int    `json:"lessonReward"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	if l.LessonID == "" {
		l.LessonID = uuid.NewString()
	}
	return nil
}
