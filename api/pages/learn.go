package pages

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/chainacademy/api/web"
	"github.com/irsalhamdi/chainacademy/core/course"
	"github.com/irsalhamdi/chainacademy/core/enrollment"
	"github.com/irsalhamdi/chainacademy/database"
	"github.com/irsalhamdi/chainacademy/ui"
)

// learner resolves the guards shared by the lesson pages. When ok is false
// the redirect has already been written.
func (p *Pages) learner(ctx context.Context, w http.ResponseWriter, r *http.Request) (userID string, c course.Course, ok bool, err error) {
	slug := web.Param(r, "slug")

	clm, signed := signedIn(ctx)
	if !signed {
		return "", c, false, toSignin(w, r, r.URL.RequestURI())
	}

	c, err = course.FetchBySlug(ctx, p.DB, slug)
	if err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return "", c, false, web.Redirect(w, r, "/courses")
		}
		return "", c, false, err
	}

	enrolled, err := enrollment.Check(ctx, p.DB, clm.UserID, c.ID)
	if err != nil {
		return "", c, false, err
	}
	if !enrolled {
		return "", c, false, web.Redirect(w, r, "/courses/"+c.Slug)
	}

	return clm.UserID, c, true, nil
}

func firstLesson(w http.ResponseWriter, r *http.Request, c course.Course) error {
	first, ok := c.FirstLesson()
	if !ok {
		return web.Redirect(w, r, "/courses/"+c.Slug)
	}
	return web.Redirect(w, r, lessonPath(c, first.ID))
}

func lessonPath(c course.Course, lessonID string) string {
	return "/courses/" + c.Slug + "/learn/" + lessonID
}

// HandleLearn plays a lesson. A missing or unknown lesson id falls back to
// the first lesson of the course.
func (p *Pages) HandleLearn() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID, c, ok, err := p.learner(ctx, w, r)
		if !ok || err != nil {
			return err
		}

		lesson, module, found := c.Lesson(web.Param(r, "lesson_id"))
		if !found {
			return firstLesson(w, r, c)
		}

		if err := enrollment.Touch(ctx, p.DB, userID, c.ID); err != nil {
			return fmt.Errorf("touching enrollment: %w", err)
		}

		e, err := enrollment.Fetch(ctx, p.DB, userID, c.ID)
		if err != nil {
			return err
		}
		done, err := enrollment.CompletedLessons(ctx, p.DB, userID, c.ID)
		if err != nil {
			return err
		}

		lp := ui.LessonPlayer{
			Course:   c,
			Module:   module,
			Lesson:   lesson,
			Done:     done,
			Progress: e.Progress,
		}
		if next, ok := c.NextLesson(lesson.ID); ok {
			lp.Next = &next
		}

		return p.render(ctx, w, http.StatusOK, "learn", ui.Page{Title: lesson.Title, Data: lp})
	}
}

// HandleComplete marks a lesson done and moves on to the next one.
func (p *Pages) HandleComplete() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID, c, ok, err := p.learner(ctx, w, r)
		if !ok || err != nil {
			return err
		}

		lessonID := web.Param(r, "lesson_id")
		if _, err := enrollment.CompleteLesson(ctx, p.DB, userID, c, lessonID); err != nil {
			if errors.Is(err, enrollment.ErrUnknownLesson) {
				return firstLesson(w, r, c)
			}
			return err
		}

		if next, ok := c.NextLesson(lessonID); ok {
			return web.Redirect(w, r, lessonPath(c, next.ID))
		}
		return web.Redirect(w, r, lessonPath(c, lessonID))
	}
}
