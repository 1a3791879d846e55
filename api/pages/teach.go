package pages

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/irsalhamdi/chainacademy/api/web"
	"github.com/irsalhamdi/chainacademy/api/weberr"
	"github.com/irsalhamdi/chainacademy/core/auth"
	"github.com/irsalhamdi/chainacademy/core/claims"
	"github.com/irsalhamdi/chainacademy/core/course"
	"github.com/irsalhamdi/chainacademy/core/instructor"
	"github.com/irsalhamdi/chainacademy/core/user"
	"github.com/irsalhamdi/chainacademy/database"
	"github.com/irsalhamdi/chainacademy/money"
	"github.com/irsalhamdi/chainacademy/ui"
	"github.com/irsalhamdi/chainacademy/validate"
)

var educatorFields = []string{"name", "expertise", "bio", "avatar", "payoutEmail", "walletAddress"}

// HandleBecomeEducator shows and accepts the educator application. Users who
// already teach go straight to course creation.
func (p *Pages) HandleBecomeEducator() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, ok := signedIn(ctx)
		if !ok {
			return toSignin(w, r, "/become-educator")
		}

		existed, err := instructor.IsInstructor(ctx, p.DB, clm.UserID)
		if err != nil {
			return fmt.Errorf("checking instructor status: %w", err)
		}
		if existed {
			return web.Redirect(w, r, "/teach/courses/new")
		}

		page := ui.Page{Title: "Become an Educator"}
		if r.Method == http.MethodGet {
			form := ui.Form{Values: map[string]string{}}
			if u, err := user.Fetch(ctx, p.DB, clm.UserID); err == nil {
				form.Values["name"] = u.Name
				form.Values["payoutEmail"] = u.Email
			}
			page.Data = form
			return p.render(ctx, w, http.StatusOK, "become-educator", page)
		}

		if err := parseForm(w, r); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to parse form: %w", err))
		}
		form := ui.Form{Values: formValues(r, educatorFields...)}
		page.Data = form

		in, err := instructor.Apply(ctx, p.DB, clm.UserID, instructor.Application{
			Name:          form.Get("name"),
			Bio:           form.Get("bio"),
			Expertise:     form.Get("expertise"),
			Avatar:        form.Get("avatar"),
			PayoutEmail:   form.Get("payoutEmail"),
			WalletAddress: form.Get("walletAddress"),
		})
		if err != nil {
			if errors.Is(err, validate.ErrInvalid) {
				page.Error = err.Error()
				return p.render(ctx, w, http.StatusUnprocessableEntity, "become-educator", page)
			}
			return err
		}

		if clm.Role != claims.RoleAdmin {
			auth.SetRole(ctx, p.Session, claims.RoleInstructor)
		}
		if err := instructor.Welcome(p.Checkout.Background, p.Checkout.Mailer, in); err != nil {
			p.Log.WithError(err).WithField("instructor", in.ID).Warn("welcome mail not sent")
		}

		return web.Redirect(w, r, "/teach/courses/new")
	}
}

var courseFields = []string{"title", "description", "price", "coverImage", "module", "lessons"}

// parseCourse reads the new course form. Lessons come one per line as
// "title | minutes | video URL"; the first lesson is a free preview.
func parseCourse(f url.Values) (course.CourseNew, error) {
	cn := course.CourseNew{
		Title:       strings.TrimSpace(f.Get("title")),
		Description: strings.TrimSpace(f.Get("description")),
		CoverImage:  strings.TrimSpace(f.Get("coverImage")),
	}

	if v := strings.TrimSpace(f.Get("price")); v != "" {
		cents, err := money.Cents(v)
		if err != nil {
			return cn, fmt.Errorf("price %q is not an amount", v)
		}
		cn.Price = cents
	}

	mod := course.ModuleNew{Title: strings.TrimSpace(f.Get("module"))}
	for i, line := range strings.Split(f.Get("lessons"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Split(line, "|")
		l := course.LessonNew{
			Title: strings.TrimSpace(parts[0]),
			Free:  len(mod.Lessons) == 0,
		}
		if len(parts) > 1 {
			if v := strings.TrimSpace(parts[1]); v != "" {
				minutes, err := strconv.ParseFloat(v, 64)
				if err != nil || minutes < 0 {
					return cn, fmt.Errorf("lesson on line %d: %q is not a number of minutes", i+1, v)
				}
				l.Duration = int(minutes * 60)
			}
		}
		if len(parts) > 2 {
			l.VideoURL = strings.TrimSpace(parts[2])
		}
		mod.Lessons = append(mod.Lessons, l)
	}
	cn.Modules = []course.ModuleNew{mod}

	return cn, nil
}

// HandleNewCourse lets instructors publish a course. Everybody else is sent
// to the educator application first.
func (p *Pages) HandleNewCourse() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, ok := signedIn(ctx)
		if !ok {
			return toSignin(w, r, "/teach/courses/new")
		}

		in, err := instructor.FetchByUser(ctx, p.DB, clm.UserID)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return web.Redirect(w, r, "/become-educator")
			}
			return err
		}

		page := ui.Page{Title: "New course", Data: ui.Form{}}
		if r.Method == http.MethodGet {
			return p.render(ctx, w, http.StatusOK, "teach-new", page)
		}

		if err := parseForm(w, r); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to parse form: %w", err))
		}
		page.Data = ui.Form{Values: formValues(r, courseFields...)}

		cn, err := parseCourse(r.PostForm)
		if err != nil {
			page.Error = err.Error()
			return p.render(ctx, w, http.StatusUnprocessableEntity, "teach-new", page)
		}

		c, err := course.Create(ctx, p.DB, in, cn)
		if err != nil {
			if errors.Is(err, validate.ErrInvalid) {
				page.Error = err.Error()
				return p.render(ctx, w, http.StatusUnprocessableEntity, "teach-new", page)
			}
			return err
		}

		p.Log.WithField("course", c.ID).WithField("instructor", in.ID).Info("course published")
		return web.Redirect(w, r, "/courses/"+c.Slug)
	}
}
