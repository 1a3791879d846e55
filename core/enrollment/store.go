package enrollment

import (
	"context"
	"fmt"
	"time"

	"github.com/irsalhamdi/chainacademy/database"
	"github.com/jmoiron/sqlx"
)

const selectEnrollment = `
	SELECT enrollment_id, course_id, user_id, enrolled_at, last_access_at, progress, completed
	FROM enrollments`

func insert(ctx context.Context, db sqlx.ExtContext, e Enrollment) error {
	const q = `
	INSERT INTO enrollments
		(enrollment_id, course_id, user_id, enrolled_at, last_access_at, progress, completed)
	VALUES
		(:enrollment_id, :course_id, :user_id, :enrolled_at, :last_access_at, :progress, :completed)`

	if err := database.NamedExec(ctx, db, q, e); err != nil {
		return fmt.Errorf("inserting enrollment: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (Enrollment, error) {
	var e Enrollment
	q := selectEnrollment + ` WHERE user_id = ? AND course_id = ?`
	if err := database.Get(ctx, db, &e, q, userID, courseID); err != nil {
		return Enrollment{}, fmt.Errorf("selecting enrollment of user[%s] in course[%s]: %w", userID, courseID, err)
	}
	return e, nil
}

// ListByUser returns the user's enrollments, most recently accessed first.
func ListByUser(ctx context.Context, db sqlx.ExtContext, userID string) ([]Record, error) {
	const q = `
	SELECT
		e.enrollment_id, e.course_id, e.user_id, e.enrolled_at, e.last_access_at,
		e.progress, e.completed,
		c.slug AS course_slug, c.title AS course_title, c.cover_image,
		i.name AS instructor_name
	FROM enrollments e
	JOIN courses c ON c.course_id = e.course_id
	JOIN instructors i ON i.instructor_id = c.instructor_id
	WHERE e.user_id = ?
	ORDER BY e.last_access_at DESC, c.slug`

	rs := []Record{}
	if err := database.Select(ctx, db, &rs, q, userID); err != nil {
		return nil, fmt.Errorf("selecting enrollments of user[%s]: %w", userID, err)
	}
	return rs, nil
}

// Touch records an access to the course now.
func Touch(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) error {
	const q = `UPDATE enrollments SET last_access_at = ? WHERE user_id = ? AND course_id = ?`

	n, err := database.Exec(ctx, db, q, time.Now().UTC(), userID, courseID)
	if err != nil {
		return fmt.Errorf("touching enrollment of user[%s] in course[%s]: %w", userID, courseID, err)
	}
	if n == 0 {
		return database.ErrDBNotFound
	}
	return nil
}

func setProgress(ctx context.Context, db sqlx.ExtContext, userID string, courseID string, progress int) error {
	const q = `
	UPDATE enrollments SET progress = ?, completed = ?, last_access_at = ?
	WHERE user_id = ? AND course_id = ?`

	n, err := database.Exec(ctx, db, q, progress, progress == 100, time.Now().UTC(), userID, courseID)
	if err != nil {
		return fmt.Errorf("updating progress of user[%s] in course[%s]: %w", userID, courseID, err)
	}
	if n == 0 {
		return database.ErrDBNotFound
	}
	return nil
}

func insertCompletion(ctx context.Context, db sqlx.ExtContext, userID, lessonID, courseID string) error {
	const q = `
	INSERT INTO lesson_completions (user_id, lesson_id, course_id, created_at)
	VALUES (?, ?, ?, ?)`

	if _, err := database.Exec(ctx, db, q, userID, lessonID, courseID, time.Now().UTC()); err != nil {
		return fmt.Errorf("inserting completion of lesson[%s]: %w", lessonID, err)
	}
	return nil
}

func completed(ctx context.Context, db sqlx.ExtContext, userID string, lessonID string) (bool, error) {
	var n int
	const q = `SELECT COUNT(*) FROM lesson_completions WHERE user_id = ? AND lesson_id = ?`
	if err := database.Get(ctx, db, &n, q, userID, lessonID); err != nil {
		return false, err
	}
	return n > 0, nil
}

// CompletedLessons returns the ids of the lessons the user finished in the
// course.
func CompletedLessons(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (map[string]bool, error) {
	var ids []string
	const q = `SELECT lesson_id FROM lesson_completions WHERE user_id = ? AND course_id = ?`
	if err := database.Select(ctx, db, &ids, q, userID, courseID); err != nil {
		return nil, fmt.Errorf("selecting completions of user[%s] in course[%s]: %w", userID, courseID, err)
	}

	done := make(map[string]bool, len(ids))
	for _, id := range ids {
		done[id] = true
	}
	return done, nil
}
