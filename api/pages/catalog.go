package pages

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/chainacademy/api/web"
	"github.com/irsalhamdi/chainacademy/api/weberr"
	"github.com/irsalhamdi/chainacademy/core/blog"
	"github.com/irsalhamdi/chainacademy/core/course"
	"github.com/irsalhamdi/chainacademy/core/enrollment"
	"github.com/irsalhamdi/chainacademy/core/payment"
	"github.com/irsalhamdi/chainacademy/database"
	"github.com/irsalhamdi/chainacademy/ui"
)

const homePosts = 3

func (p *Pages) HandleHome() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		featured, err := course.Featured(ctx, p.DB, p.Featured)
		if err != nil {
			return fmt.Errorf("loading featured courses: %w", err)
		}

		posts := p.Blog.List()
		if len(posts) > homePosts {
			posts = posts[:homePosts]
		}

		return p.render(ctx, w, http.StatusOK, "home", ui.Page{
			Data: ui.Home{Featured: featured, Posts: posts},
		})
	}
}

func (p *Pages) HandleCourses() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		pg, err := course.List(ctx, p.DB, web.QueryInt(r, "page", 1), p.PageSize)
		if err != nil {
			return fmt.Errorf("listing courses: %w", err)
		}
		return p.render(ctx, w, http.StatusOK, "courses", ui.Page{Title: "Courses", Data: pg})
	}
}

func (p *Pages) courseDetail(ctx context.Context, c course.Course) (ui.CourseDetail, error) {
	cd := ui.CourseDetail{Course: c, Providers: p.Checkout.Processors.Names()}

	if clm, ok := signedIn(ctx); ok {
		cd.SignedIn = true
		enrolled, err := enrollment.Check(ctx, p.DB, clm.UserID, c.ID)
		if err != nil {
			return cd, err
		}
		cd.Enrolled = enrolled
	}

	if p.Rates != nil && c.Price > 0 {
		eth, err := p.Rates.ToETH(ctx, c.Price)
		if err != nil {
			p.Log.WithError(err).Warn("no ETH quote for course page")
		} else {
			cd.ETHPrice = eth.StringFixed(4)
		}
	}
	return cd, nil
}

// HandleCourse shows a course. Unknown slugs go back to the catalog.
func (p *Pages) HandleCourse() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c, err := course.FetchBySlug(ctx, p.DB, web.Param(r, "slug"))
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return web.Redirect(w, r, "/courses")
			}
			return err
		}

		cd, err := p.courseDetail(ctx, c)
		if err != nil {
			return err
		}
		return p.render(ctx, w, http.StatusOK, "course", ui.Page{Title: c.Title, Data: cd})
	}
}

// HandleEnroll buys the course with the chosen processor. Free courses and
// processors that settle at once land on the first lesson; hosted checkouts
// redirect to the provider.
func (p *Pages) HandleEnroll() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		slug := web.Param(r, "slug")
		clm, ok := signedIn(ctx)
		if !ok {
			return toSignin(w, r, "/courses/"+slug)
		}

		c, err := course.FetchBySlug(ctx, p.DB, slug)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return web.Redirect(w, r, "/courses")
			}
			return err
		}
		learn := "/courses/" + c.Slug + "/learn"

		if err := parseForm(w, r); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to parse form: %w", err))
		}

		name := r.PostForm.Get("provider")
		if name == "" {
			name = p.Checkout.Default
		}
		proc, ok := p.Checkout.Processors[name]
		if !ok {
			return p.courseError(ctx, w, c, http.StatusBadRequest, fmt.Sprintf("Payment provider %q is not available.", name))
		}

		pay, err := payment.Process(ctx, p.DB, proc, c.Price, c.ID, clm.UserID)
		if err != nil {
			switch {
			case errors.Is(err, payment.ErrAlreadyEnrolled):
				return web.Redirect(w, r, learn)
			case errors.Is(err, payment.ErrAmountMismatch), errors.Is(err, payment.ErrInvalidAmount):
				return p.courseError(ctx, w, c, http.StatusUnprocessableEntity, err.Error())
			}
			p.Log.WithError(err).WithField("course", c.ID).Warn("payment failed")
			return p.courseError(ctx, w, c, http.StatusPaymentRequired, "The payment could not be completed. Please try again.")
		}
		p.Checkout.SendReceipt(ctx, pay)

		switch {
		case pay.Status == payment.Success:
			return web.Redirect(w, r, learn)
		case pay.RedirectURL != "":
			return web.Redirect(w, r, pay.RedirectURL)
		}
		return web.Redirect(w, r, "/dashboard")
	}
}

func (p *Pages) courseError(ctx context.Context, w http.ResponseWriter, c course.Course, status int, msg string) error {
	cd, err := p.courseDetail(ctx, c)
	if err != nil {
		return err
	}
	return p.render(ctx, w, status, "course", ui.Page{Title: c.Title, Error: msg, Data: cd})
}

func (p *Pages) HandleBlog() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return p.render(ctx, w, http.StatusOK, "blog", ui.Page{Title: "Blog", Data: p.Blog.List()})
	}
}

func (p *Pages) HandlePost() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		post, err := p.Blog.Fetch(web.Param(r, "slug"))
		if err != nil {
			if errors.Is(err, blog.ErrNotFound) {
				return web.Redirect(w, r, "/blog")
			}
			return err
		}
		return p.render(ctx, w, http.StatusOK, "post", ui.Page{Title: post.Title, Data: post})
	}
}
