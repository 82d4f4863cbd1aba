package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"lingo-backend/models"
	"lingo-backend/pkg/queue"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func newProgressService(t *testing.T) (*ProgressService, fixture, *recordingPublisher) {
	t.Helper()

	db := newTestDB(t)
	f := seedCurriculum(t, db)

	location, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		t.Fatalf("failed to load timezone: %v", err)
	}

	publisher := &recordingPublisher{}
	curriculum := NewCurriculumService(db, nil, publisher, nil)
	streaks := NewStreakService(db, location, FreezePolicyPreviewOnly, nil)
	streaks.Now = fixedClock(2024, time.June, 1)
	ps := NewProgressService(db, curriculum, streaks, publisher, &fakeEnergyClient{hasEnergy: true}, nil)

	return ps, f, publisher
}

func activeLessonProgress(t *testing.T, db *gorm.DB, userID string) models.UserLessonProgress {
	t.Helper()
	var progress models.UserLessonProgress
	err := db.Joins("JOIN user_stage_progresses ON user_stage_progresses.user_stage_progress_id = user_lesson_progresses.user_stage_progress_id").
		Where("user_stage_progresses.user_id = ? AND user_lesson_progresses.completed_at IS NULL", userID).
		Order("user_lesson_progresses.created_at DESC").
		First(&progress).Error
	if err != nil {
		t.Fatalf("no active lesson progress for %s: %v", userID, err)
	}
	return progress
}

func TestInitStageProgressSeedsFirstStage(t *testing.T) {
	ps, f, _ := newProgressService(t)
	ctx := context.Background()

	err := ps.InitStageProgress(ctx, "user-1")
	assert.NoError(t, err)

	var stageProgress models.UserStageProgress
	err = ps.DB.Where("user_id = ?", "user-1").First(&stageProgress).Error
	assert.NoError(t, err)
	assert.Equal(t, f.S1.StageID, stageProgress.StageID)
	assert.False(t, stageProgress.IsDone)

	progress := activeLessonProgress(t, ps.DB, "user-1")
	assert.Equal(t, f.L1.LessonID, progress.LessonID)
}

func TestInitStageProgressResetsExisting(t *testing.T) {
	ps, f, _ := newProgressService(t)
	ctx := context.Background()

	assert.NoError(t, ps.InitStageProgress(ctx, "user-1"))
	assert.NoError(t, ps.InitStageProgress(ctx, "user-1"))

	var count int64
	assert.NoError(t, ps.DB.Model(&models.UserStageProgress{}).Where("user_id = ?", "user-1").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	progress := activeLessonProgress(t, ps.DB, "user-1")
	assert.Equal(t, f.L1.LessonID, progress.LessonID)
}

func TestDoneLessonAdvancesWithinStage(t *testing.T) {
	ps, f, publisher := newProgressService(t)
	ctx := context.Background()

	assert.NoError(t, ps.InitStageProgress(ctx, "user-1"))
	progress := activeLessonProgress(t, ps.DB, "user-1")

	result, err := ps.DoneLesson(ctx, "user-1", DoneLessonRequest{
		UserLessonProgressID: progress.UserLessonProgressID,
		TimeSpent:            42,
		AccuracyRate:         0.9,
		KnowledgePoints:      5,
	})
	assert.NoError(t, err)
	assert.True(t, result.IsStreakCreated)

	var completed models.UserLessonProgress
	assert.NoError(t, ps.DB.First(&completed, "user_lesson_progress_id = ?", progress.UserLessonProgressID).Error)
	assert.NotNil(t, completed.CompletedAt)
	assert.Equal(t, 42.0, completed.TimeSpent)
	assert.Equal(t, 0.9, completed.AccuracyRate)

	next := activeLessonProgress(t, ps.DB, "user-1")
	assert.Equal(t, f.L2.LessonID, next.LessonID)
	assert.Equal(t, progress.UserStageProgressID, next.UserStageProgressID)

	// The wallet notification went out after commit, carrying the
	// knowledge points and the lesson reward.
	events := publisher.byQueue(queue.QueueLessonProgressDone)
	assert.Len(t, events, 1)
	var payload map[string]interface{}
	assert.NoError(t, json.Unmarshal(events[0].Body, &payload))
	assert.Equal(t, "user-1", payload["userId"])
	assert.Equal(t, float64(5), payload["kp"])
	assert.Equal(t, float64(5), payload["rubyReward"])
}

func TestDoneLessonCrossesStage(t *testing.T) {
	ps, f, _ := newProgressService(t)
	ctx := context.Background()

	assert.NoError(t, ps.InitStageProgress(ctx, "user-1"))

	// Complete L1, then L2 (the last lesson of S1).
	for i := 0; i < 2; i++ {
		progress := activeLessonProgress(t, ps.DB, "user-1")
		_, err := ps.DoneLesson(ctx, "user-1", DoneLessonRequest{UserLessonProgressID: progress.UserLessonProgressID})
		assert.NoError(t, err)
	}

	var oldStage models.UserStageProgress
	assert.NoError(t, ps.DB.Where("user_id = ? AND stage_id = ?", "user-1", f.S1.StageID).First(&oldStage).Error)
	assert.True(t, oldStage.IsDone)

	var newStage models.UserStageProgress
	assert.NoError(t, ps.DB.Where("user_id = ? AND stage_id = ?", "user-1", f.S2.StageID).First(&newStage).Error)
	assert.False(t, newStage.IsDone)

	next := activeLessonProgress(t, ps.DB, "user-1")
	assert.Equal(t, f.L3.LessonID, next.LessonID)
	assert.Equal(t, newStage.UserStageProgressID, next.UserStageProgressID)
}

func TestDoneLessonIdempotent(t *testing.T) {
	ps, _, _ := newProgressService(t)
	ctx := context.Background()

	assert.NoError(t, ps.InitStageProgress(ctx, "user-1"))
	progress := activeLessonProgress(t, ps.DB, "user-1")

	req := DoneLessonRequest{UserLessonProgressID: progress.UserLessonProgressID, TimeSpent: 10}
	_, err := ps.DoneLesson(ctx, "user-1", req)
	assert.NoError(t, err)

	var lessonRows, stageRows int64
	assert.NoError(t, ps.DB.Model(&models.UserLessonProgress{}).Count(&lessonRows).Error)
	assert.NoError(t, ps.DB.Model(&models.UserStageProgress{}).Count(&stageRows).Error)

	// Second completion of the same attempt changes nothing.
	result, err := ps.DoneLesson(ctx, "user-1", req)
	assert.NoError(t, err)
	assert.False(t, result.IsStreakCreated)

	var lessonRowsAfter, stageRowsAfter int64
	assert.NoError(t, ps.DB.Model(&models.UserLessonProgress{}).Count(&lessonRowsAfter).Error)
	assert.NoError(t, ps.DB.Model(&models.UserStageProgress{}).Count(&stageRowsAfter).Error)
	assert.Equal(t, lessonRows, lessonRowsAfter)
	assert.Equal(t, stageRows, stageRowsAfter)
}

func TestDoneLessonCurriculumExhausted(t *testing.T) {
	ps, f, _ := newProgressService(t)
	ctx := context.Background()

	// Put the user directly on the curriculum's final lesson.
	stageProgress := models.UserStageProgress{UserID: "user-1", StageID: f.S4.StageID}
	mustCreate(t, ps.DB, &stageProgress)
	lessonProgress := models.UserLessonProgress{
		UserStageProgressID: stageProgress.UserStageProgressID,
		LessonID:            f.L5.LessonID,
	}
	mustCreate(t, ps.DB, &lessonProgress)

	result, err := ps.DoneLesson(ctx, "user-1", DoneLessonRequest{UserLessonProgressID: lessonProgress.UserLessonProgressID})
	assert.NoError(t, err)
	assert.True(t, result.IsStreakCreated)

	var done models.UserStageProgress
	assert.NoError(t, ps.DB.First(&done, "user_stage_progress_id = ?", stageProgress.UserStageProgressID).Error)
	assert.True(t, done.IsDone)

	// No new progress rows were created.
	var stageRows, lessonRows int64
	assert.NoError(t, ps.DB.Model(&models.UserStageProgress{}).Where("user_id = ?", "user-1").Count(&stageRows).Error)
	assert.NoError(t, ps.DB.Model(&models.UserLessonProgress{}).Count(&lessonRows).Error)
	assert.Equal(t, int64(1), stageRows)
	assert.Equal(t, int64(1), lessonRows)
}

func TestDoneLessonMissingProgressStillCountsStreak(t *testing.T) {
	ps, _, publisher := newProgressService(t)
	ctx := context.Background()

	result, err := ps.DoneLesson(ctx, "user-1", DoneLessonRequest{UserLessonProgressID: "does-not-exist"})
	assert.NoError(t, err)
	assert.True(t, result.IsStreakCreated)

	var streak models.Streak
	assert.NoError(t, ps.DB.Where("user_id = ?", "user-1").First(&streak).Error)
	assert.Equal(t, 1, streak.CurrentStreak)

	assert.Len(t, publisher.byQueue(queue.QueueLessonProgressDone), 1)
}

func TestStartLessonWithEnergy(t *testing.T) {
	ps, _, publisher := newProgressService(t)

	result, err := ps.StartLesson(context.Background(), "user-1")
	assert.NoError(t, err)
	assert.True(t, result.HasEnergy)
	assert.Len(t, publisher.byQueue(queue.QueueLessonProgressStarted), 1)
}

func TestStartLessonWithoutEnergy(t *testing.T) {
	ps, _, publisher := newProgressService(t)
	ps.Energy = &fakeEnergyClient{hasEnergy: false}

	result, err := ps.StartLesson(context.Background(), "user-1")
	assert.NoError(t, err)
	assert.False(t, result.HasEnergy)
	assert.Empty(t, publisher.byQueue(queue.QueueLessonProgressStarted))
}

func TestGetGameLevelsProgressLazyInit(t *testing.T) {
	ps, f, _ := newProgressService(t)
	ctx := context.Background()

	levels, err := ps.GetGameLevelsProgress(ctx, "user-1")
	assert.NoError(t, err)

	// Level 2 has no active stages and is filtered from the snapshot.
	assert.Len(t, levels, 1)
	assert.Equal(t, f.Level1.GameLevelID, levels[0].GameLevelID)
	assert.Equal(t, 2, levels[0].TotalStage)
	assert.Equal(t, 0, levels[0].StageProgress)
	assert.True(t, levels[0].IsStarted)

	// The query itself seeded the first stage.
	progress := activeLessonProgress(t, ps.DB, "user-1")
	assert.Equal(t, f.L1.LessonID, progress.LessonID)
}

func TestGetUserCurrentGameLevelProgress(t *testing.T) {
	ps, f, _ := newProgressService(t)
	ctx := context.Background()

	current, err := ps.GetUserCurrentGameLevelProgress(ctx, "user-1")
	assert.NoError(t, err)
	assert.Equal(t, f.Level1.GameLevelID, current.GameLevelID)
}

func TestGetGameStagesProgressFiltersByStage(t *testing.T) {
	ps, f, _ := newProgressService(t)
	ctx := context.Background()

	assert.NoError(t, ps.InitStageProgress(ctx, "user-1"))

	progress, err := ps.GetGameStagesProgress(ctx, "user-1", []string{f.S1.StageID})
	assert.NoError(t, err)
	assert.Len(t, progress, 1)
	assert.Equal(t, f.S1.StageID, progress[0].StageID)
	assert.Len(t, progress[0].LessonProgress, 1)

	none, err := ps.GetGameStagesProgress(ctx, "user-1", []string{f.S2.StageID})
	assert.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteStageProgressCascade(t *testing.T) {
	ps, f, _ := newProgressService(t)
	ctx := context.Background()

	assert.NoError(t, ps.InitStageProgress(ctx, "user-1"))
	assert.NoError(t, ps.DeleteStageProgress(ctx, f.S1.StageID))

	var stageRows, lessonRows int64
	assert.NoError(t, ps.DB.Model(&models.UserStageProgress{}).Count(&stageRows).Error)
	assert.NoError(t, ps.DB.Model(&models.UserLessonProgress{}).Count(&lessonRows).Error)
	assert.Equal(t, int64(0), stageRows)
	assert.Equal(t, int64(0), lessonRows)
}

func TestDeleteLessonProgress(t *testing.T) {
	ps, f, _ := newProgressService(t)
	ctx := context.Background()

	assert.NoError(t, ps.InitStageProgress(ctx, "user-1"))
	assert.NoError(t, ps.DeleteLessonProgress(ctx, f.L1.LessonID))

	var lessonRows int64
	assert.NoError(t, ps.DB.Model(&models.UserLessonProgress{}).Count(&lessonRows).Error)
	assert.Equal(t, int64(0), lessonRows)
}
