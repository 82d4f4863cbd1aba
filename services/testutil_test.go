package services

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"lingo-backend/models"
	"lingo-backend/utils"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := utils.MigrateDB(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

type publishedEvent struct {
	Queue string
	Body  []byte
}

// recordingPublisher captures events instead of sending them.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, queueName string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Queue: queueName, Body: body})
	return nil
}

func (p *recordingPublisher) byQueue(queueName string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, ev := range p.events {
		if ev.Queue == queueName {
			out = append(out, ev)
		}
	}
	return out
}

type fakeEnergyClient struct {
	hasEnergy bool
	err       error
}

func (f *fakeEnergyClient) CheckEnergy(ctx context.Context, userID string) (bool, error) {
	return f.hasEnergy, f.err
}

// fixture is a small curriculum:
//
//	Level 1 (order 1)
//	  Stage S1 (order 1, active):   L1 (order 1), L2 (order 2)
//	  Stage S2 (order 2, active):   L3 (order 1)
//	  Stage S3 (order 3, inactive): L4 (order 1)
//	Level 2 (order 2)
//	  Stage S4 (order 1, inactive): L5 (order 1)
type fixture struct {
	Level1, Level2     models.GameLevel
	S1, S2, S3, S4     models.Stage
	L1, L2, L3, L4, L5 models.Lesson
}

func seedCurriculum(t *testing.T, db *gorm.DB) fixture {
	t.Helper()

	var f fixture
	f.Level1 = models.GameLevel{GameLevelName: "Basics", LevelOrder: 1}
	f.Level2 = models.GameLevel{GameLevelName: "Intermediate", LevelOrder: 2}
	mustCreate(t, db, &f.Level1)
	mustCreate(t, db, &f.Level2)

	f.S1 = models.Stage{GameLevelID: f.Level1.GameLevelID, StageName: "Greetings", StageOrder: 1, IsActive: true}
	f.S2 = models.Stage{GameLevelID: f.Level1.GameLevelID, StageName: "Numbers", StageOrder: 2, IsActive: true}
	f.S3 = models.Stage{GameLevelID: f.Level1.GameLevelID, StageName: "Colors", StageOrder: 3, IsActive: false}
	f.S4 = models.Stage{GameLevelID: f.Level2.GameLevelID, StageName: "Food", StageOrder: 1, IsActive: false}
	mustCreate(t, db, &f.S1)
	mustCreate(t, db, &f.S2)
	mustCreate(t, db, &f.S3)
	mustCreate(t, db, &f.S4)

	f.L1 = models.Lesson{StageID: f.S1.StageID, LessonName: "Flashcards", LessonType: models.LessonTypeFlashcard, LessonOrder: 1, LessonReward: 5}
	f.L2 = models.Lesson{StageID: f.S1.StageID, LessonName: "Reward", LessonType: models.LessonTypeReward, LessonOrder: 2, LessonReward: 100}
	f.L3 = models.Lesson{StageID: f.S2.StageID, LessonName: "Flashcards", LessonType: models.LessonTypeFlashcard, LessonOrder: 1, LessonReward: 5}
	f.L4 = models.Lesson{StageID: f.S3.StageID, LessonName: "Flashcards", LessonType: models.LessonTypeFlashcard, LessonOrder: 1, LessonReward: 5}
	f.L5 = models.Lesson{StageID: f.S4.StageID, LessonName: "Flashcards", LessonType: models.LessonTypeFlashcard, LessonOrder: 1, LessonReward: 5}
	mustCreate(t, db, &f.L1)
	mustCreate(t, db, &f.L2)
	mustCreate(t, db, &f.L3)
	mustCreate(t, db, &f.L4)
	mustCreate(t, db, &f.L5)

	return f
}

func mustCreate(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("failed to seed %T: %v", value, err)
	}
}

func fixedClock(year int, month time.Month, day int) func() time.Time {
	return func() time.Time {
		return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
	}
}
