package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/chainacademy/core/course"
	"github.com/irsalhamdi/chainacademy/database"
	"github.com/irsalhamdi/chainacademy/validate"
	"github.com/jmoiron/sqlx"
)

var ErrUnknownLesson = errors.New("lesson does not belong to the course")

// Check reports whether the user is enrolled in the course.
func Check(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	_, err := Fetch(ctx, db, userID, courseID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, database.ErrDBNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Enroll adds the user to the course. Enrolling twice returns the existing
// enrollment. db may be a transaction.
func Enroll(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (Enrollment, error) {
	e, err := Fetch(ctx, db, userID, courseID)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, database.ErrDBNotFound) {
		return Enrollment{}, err
	}

	now := time.Now().UTC()
	e = Enrollment{
		ID:           validate.GenerateID(),
		CourseID:     courseID,
		UserID:       userID,
		EnrolledAt:   now,
		LastAccessAt: now,
	}

	if err := insert(ctx, db, e); err != nil {
		if errors.Is(err, database.ErrDBDuplicatedEntry) {
			return Fetch(ctx, db, userID, courseID)
		}
		return Enrollment{}, err
	}

	if err := course.IncrementStudents(ctx, db, courseID); err != nil {
		return Enrollment{}, err
	}

	return e, nil
}

// CompleteLesson marks the lesson done and recomputes the course progress
// from all the completions of the user.
func CompleteLesson(ctx context.Context, db *sqlx.DB, userID string, c course.Course, lessonID string) (Enrollment, error) {
	if _, _, ok := c.Lesson(lessonID); !ok {
		return Enrollment{}, ErrUnknownLesson
	}

	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		if _, err := Fetch(ctx, tx, userID, c.ID); err != nil {
			return err
		}

		done, err := completed(ctx, tx, userID, lessonID)
		if err != nil {
			return err
		}
		if !done {
			if err := insertCompletion(ctx, tx, userID, lessonID, c.ID); err != nil {
				return err
			}
		}

		all, err := CompletedLessons(ctx, tx, userID, c.ID)
		if err != nil {
			return err
		}

		return setProgress(ctx, tx, userID, c.ID, Percent(len(all), c.LessonCount()))
	})
	if err != nil {
		return Enrollment{}, fmt.Errorf("completing lesson[%s] for user[%s]: %w", lessonID, userID, err)
	}

	return Fetch(ctx, db, userID, c.ID)
}

// UpdateProgress stores a progress reported by a client.
func UpdateProgress(ctx context.Context, db sqlx.ExtContext, userID string, courseID string, up ProgressUp) (Enrollment, error) {
	if err := validate.Check(up); err != nil {
		return Enrollment{}, err
	}

	if err := setProgress(ctx, db, userID, courseID, up.Progress); err != nil {
		return Enrollment{}, err
	}
	return Fetch(ctx, db, userID, courseID)
}
