package course

import (
	"context"
	"fmt"
	"time"

	"github.com/irsalhamdi/chainacademy/database"
	"github.com/jmoiron/sqlx"
)

const selectCourse = `
	SELECT
		c.course_id, c.slug, c.title, c.description, c.price, c.rating,
		c.students_count, c.cover_image, c.featured, c.created_at, c.updated_at,
		i.instructor_id AS "instructor.instructor_id",
		i.name AS "instructor.name",
		i.avatar AS "instructor.avatar"
	FROM courses c
	JOIN instructors i ON i.instructor_id = c.instructor_id`

const orderCourses = ` ORDER BY c.created_at DESC, c.slug`

func insert(ctx context.Context, db sqlx.ExtContext, c Course) error {
	const q = `
	INSERT INTO courses
		(course_id, slug, title, description, price, rating, students_count,
		cover_image, featured, instructor_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := database.Exec(ctx, db, q,
		c.ID, c.Slug, c.Title, c.Description, c.Price, c.Rating, c.StudentsCount,
		c.CoverImage, c.Featured, c.Instructor.ID, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting course: %w", err)
	}
	return nil
}

func insertModule(ctx context.Context, db sqlx.ExtContext, m Module) error {
	const q = `
	INSERT INTO course_modules (module_id, course_id, position, title)
	VALUES (:module_id, :course_id, :position, :title)`

	if err := database.NamedExec(ctx, db, q, m); err != nil {
		return fmt.Errorf("inserting module: %w", err)
	}
	return nil
}

func insertLesson(ctx context.Context, db sqlx.ExtContext, l Lesson) error {
	const q = `
	INSERT INTO lessons (lesson_id, module_id, course_id, position, title, duration, video_url, free)
	VALUES (:lesson_id, :module_id, :course_id, :position, :title, :duration, :video_url, :free)`

	if err := database.NamedExec(ctx, db, q, l); err != nil {
		return fmt.Errorf("inserting lesson: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Course, error) {
	var c Course
	if err := database.Get(ctx, db, &c, selectCourse+` WHERE c.course_id = ?`, id); err != nil {
		return Course{}, fmt.Errorf("selecting course[%s]: %w", id, err)
	}
	return c, nil
}

func fetchBySlug(ctx context.Context, db sqlx.ExtContext, slug string) (Course, error) {
	var c Course
	if err := database.Get(ctx, db, &c, selectCourse+` WHERE c.slug = ?`, slug); err != nil {
		return Course{}, fmt.Errorf("selecting course by slug[%s]: %w", slug, err)
	}
	return c, nil
}

func slugExists(ctx context.Context, db sqlx.ExtContext, slug string) (bool, error) {
	var n int
	if err := database.Get(ctx, db, &n, `SELECT COUNT(*) FROM courses WHERE slug = ?`, slug); err != nil {
		return false, err
	}
	return n > 0, nil
}

func Count(ctx context.Context, db sqlx.ExtContext) (int, error) {
	var n int
	if err := database.Get(ctx, db, &n, `SELECT COUNT(*) FROM courses`); err != nil {
		return 0, fmt.Errorf("counting courses: %w", err)
	}
	return n, nil
}

func query(ctx context.Context, db sqlx.ExtContext, where string, tail string, args ...any) ([]Course, error) {
	cs := []Course{}
	if err := database.Select(ctx, db, &cs, selectCourse+where+tail, args...); err != nil {
		return nil, fmt.Errorf("selecting courses: %w", err)
	}
	return cs, nil
}

func ListByInstructor(ctx context.Context, db sqlx.ExtContext, instructorID string) ([]Course, error) {
	return query(ctx, db, ` WHERE c.instructor_id = ?`, orderCourses, instructorID)
}

// ListByIDs returns the courses with the given ids, without modules.
func ListByIDs(ctx context.Context, db sqlx.ExtContext, ids []string) ([]Course, error) {
	if len(ids) == 0 {
		return []Course{}, nil
	}

	cs := []Course{}
	if err := database.In(ctx, db, &cs, selectCourse+` WHERE c.course_id IN (?)`+orderCourses, ids); err != nil {
		return nil, fmt.Errorf("selecting courses by id: %w", err)
	}
	return cs, nil
}

func loadModules(ctx context.Context, db sqlx.ExtContext, c *Course) error {
	mods := []Module{}
	const qm = `
	SELECT module_id, course_id, position, title
	FROM course_modules WHERE course_id = ? ORDER BY position`
	if err := database.Select(ctx, db, &mods, qm, c.ID); err != nil {
		return fmt.Errorf("selecting modules of course[%s]: %w", c.ID, err)
	}

	lessons := []Lesson{}
	const ql = `
	SELECT lesson_id, module_id, course_id, position, title, duration, video_url, free
	FROM lessons WHERE course_id = ? ORDER BY position`
	if err := database.Select(ctx, db, &lessons, ql, c.ID); err != nil {
		return fmt.Errorf("selecting lessons of course[%s]: %w", c.ID, err)
	}

	idx := make(map[string]int, len(mods))
	for i := range mods {
		mods[i].Lessons = []Lesson{}
		idx[mods[i].ID] = i
	}
	for _, l := range lessons {
		if i, ok := idx[l.ModuleID]; ok {
			mods[i].Lessons = append(mods[i].Lessons, l)
		}
	}

	c.Modules = mods
	return nil
}

func IncrementStudents(ctx context.Context, db sqlx.ExtContext, id string) error {
	const q = `UPDATE courses SET students_count = students_count + 1, updated_at = ? WHERE course_id = ?`
	if _, err := database.Exec(ctx, db, q, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("incrementing students of course[%s]: %w", id, err)
	}
	return nil
}
