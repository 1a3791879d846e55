package course

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/irsalhamdi/chainacademy/core/instructor"
	"github.com/irsalhamdi/chainacademy/database"
	"github.com/irsalhamdi/chainacademy/random"
	"github.com/irsalhamdi/chainacademy/validate"
	"github.com/jmoiron/sqlx"
)

var ErrSlugExhausted = errors.New("could not find a free slug")

// List returns a 1-based page of the catalog. Pages past the end are clamped
// to the last one.
func List(ctx context.Context, db sqlx.ExtContext, page int, size int) (Page, error) {
	if size <= 0 {
		size = 6
	}

	total, err := Count(ctx, db)
	if err != nil {
		return Page{}, err
	}

	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	cs, err := query(ctx, db, "", orderCourses+` LIMIT ? OFFSET ?`, size, (page-1)*size)
	if err != nil {
		return Page{}, err
	}

	return Page{Courses: cs, Page: page, TotalPages: pages, Total: total}, nil
}

// Featured returns up to n flagged courses, best rated first. Without any
// flagged course the best rated ones are used.
func Featured(ctx context.Context, db sqlx.ExtContext, n int) ([]Course, error) {
	const tail = ` ORDER BY c.rating DESC, c.slug LIMIT ?`

	cs, err := query(ctx, db, ` WHERE c.featured = ?`, tail, true, n)
	if err != nil {
		return nil, err
	}
	if len(cs) > 0 {
		return cs, nil
	}

	return query(ctx, db, "", tail, n)
}

// FetchBySlug returns the course with its instructor, modules and lessons.
func FetchBySlug(ctx context.Context, db sqlx.ExtContext, slug string) (Course, error) {
	c, err := fetchBySlug(ctx, db, slug)
	if err != nil {
		return Course{}, err
	}

	if err := loadModules(ctx, db, &c); err != nil {
		return Course{}, err
	}
	return c, nil
}

// FetchWithModules is FetchBySlug keyed by id.
func FetchWithModules(ctx context.Context, db sqlx.ExtContext, id string) (Course, error) {
	c, err := Fetch(ctx, db, id)
	if err != nil {
		return Course{}, err
	}

	if err := loadModules(ctx, db, &c); err != nil {
		return Course{}, err
	}
	return c, nil
}

// MakeAllFree sets every price to zero and reports how many courses changed.
func MakeAllFree(ctx context.Context, db sqlx.ExtContext) (int, error) {
	const q = `UPDATE courses SET price = 0, updated_at = ? WHERE price <> 0`

	n, err := database.Exec(ctx, db, q, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("making courses free: %w", err)
	}
	return int(n), nil
}

// Create publishes a new course for the instructor.
func Create(ctx context.Context, db *sqlx.DB, in instructor.Instructor, cn CourseNew) (Course, error) {
	if err := validate.Check(cn); err != nil {
		return Course{}, err
	}

	now := time.Now().UTC()
	c := Course{
		ID:          validate.GenerateID(),
		Title:       strings.TrimSpace(cn.Title),
		Description: strings.TrimSpace(cn.Description),
		Price:       cn.Price,
		CoverImage:  cn.CoverImage,
		Instructor:  InstructorRef{ID: in.ID, Name: in.Name, Avatar: in.Avatar},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for i, mn := range cn.Modules {
		m := Module{
			ID:       validate.GenerateID(),
			CourseID: c.ID,
			Position: i + 1,
			Title:    strings.TrimSpace(mn.Title),
			Lessons:  make([]Lesson, 0, len(mn.Lessons)),
		}
		for j, ln := range mn.Lessons {
			m.Lessons = append(m.Lessons, Lesson{
				ID:       validate.GenerateID(),
				ModuleID: m.ID,
				CourseID: c.ID,
				Position: j + 1,
				Title:    strings.TrimSpace(ln.Title),
				Duration: ln.Duration,
				VideoURL: ln.VideoURL,
				Free:     ln.Free,
			})
		}
		c.Modules = append(c.Modules, m)
	}

	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		slug, err := freeSlug(ctx, tx, Slugify(c.Title))
		if err != nil {
			return err
		}
		c.Slug = slug
		return store(ctx, tx, c)
	})
	if err != nil {
		return Course{}, fmt.Errorf("creating course %q: %w", cn.Title, err)
	}

	return c, nil
}

func store(ctx context.Context, tx sqlx.ExtContext, c Course) error {
	if err := insert(ctx, tx, c); err != nil {
		return err
	}
	for _, m := range c.Modules {
		if err := insertModule(ctx, tx, m); err != nil {
			return err
		}
		for _, l := range m.Lessons {
			if err := insertLesson(ctx, tx, l); err != nil {
				return err
			}
		}
	}
	return nil
}

func freeSlug(ctx context.Context, db sqlx.ExtContext, base string) (string, error) {
	slug := base
	for i := 0; i < 5; i++ {
		taken, err := slugExists(ctx, db, slug)
		if err != nil {
			return "", fmt.Errorf("checking slug %q: %w", slug, err)
		}
		if !taken {
			return slug, nil
		}
		slug = base + "-" + random.Lower(4)
	}
	return "", ErrSlugExhausted
}

// Slugify lowercases the title and joins its words with dashes.
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}

	s := strings.TrimSuffix(b.String(), "-")
	if len(s) > 80 {
		s = strings.TrimSuffix(s[:80], "-")
	}
	if s == "" {
		return "course"
	}
	return s
}
