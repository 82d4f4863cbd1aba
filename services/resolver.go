package services

import (
	"context"
)

// NextLesson is the resolver result. Both fields empty means the learner
// has exhausted the curriculum; sibling services rely on that sentinel.
type NextLesson struct {
	LessonID string `json:"lessonId"`
	StageID  string `json:"stageId"`
}

func (n NextLesson) IsEmpty() bool {
	return n.LessonID == "" && n.StageID == ""
}

// NextLessonResolver computes what a learner studies after completing a
// lesson, walking stage and level boundaries in rank order.
type NextLessonResolver struct {
	Store CurriculumStore
}

func NewNextLessonResolver(store CurriculumStore) *NextLessonResolver {
	return &NextLessonResolver{Store: store}
}

// Resolve finds the lesson following lessonID. Priority order: the next
// lesson in the same stage, then the first lesson of the next active
// stage in the same level, then the first lesson of the next level.
// An unknown lesson resolves to the empty result, not an error.
func (r *NextLessonResolver) Resolve(ctx context.Context, lessonID string) (NextLesson, error) {
	current, err := r.Store.GetLesson(ctx, lessonID)
	if err != nil {
		return NextLesson{}, err
	}
	if current == nil {
		return NextLesson{}, nil
	}

	stage, err := r.Store.GetStage(ctx, current.StageID)
	if err != nil {
		return NextLesson{}, err
	}
	if stage == nil {
		return NextLesson{}, nil
	}

	// Next lesson within the same stage.
	next, err := r.Store.NextLessonInStage(ctx, stage.StageID, current.LessonOrder)
	if err != nil {
		return NextLesson{}, err
	}
	if next != nil {
		return NextLesson{LessonID: next.LessonID, StageID: next.StageID}, nil
	}

	// Next active stage within the same level.
	nextStage, err := r.Store.NextActiveStage(ctx, stage.GameLevelID, stage.StageOrder)
	if err != nil {
		return NextLesson{}, err
	}
	if nextStage != nil {
		lessons, err := r.Store.ListLessons(ctx, nextStage.StageID)
		if err != nil {
			return NextLesson{}, err
		}
		if len(lessons) > 0 {
			return NextLesson{LessonID: lessons[0].LessonID, StageID: lessons[0].StageID}, nil
		}
	}

	// Next level. The fallback takes the globally first lesson of the
	// level without filtering inactive stages, unlike the step above.
	level, err := r.Store.GetLevel(ctx, stage.GameLevelID)
	if err != nil || level == nil {
		return NextLesson{}, err
	}

	nextLevel, err := r.Store.NextLevel(ctx, level.LevelOrder)
	if err != nil {
		return NextLesson{}, err
	}
	if nextLevel != nil {
		first, err := r.Store.FirstLessonInLevel(ctx, nextLevel.GameLevelID)
		if err != nil {
			return NextLesson{}, err
		}
		if first != nil {
			return NextLesson{LessonID: first.LessonID, StageID: first.StageID}, nil
		}
	}

	// Nothing left to study.
	return NextLesson{}, nil
}
