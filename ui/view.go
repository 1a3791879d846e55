package ui

import (
	"github.com/irsalhamdi/chainacademy/core/blog"
	"github.com/irsalhamdi/chainacademy/core/course"
	"github.com/irsalhamdi/chainacademy/core/enrollment"
	"github.com/irsalhamdi/chainacademy/core/instructor"
	"github.com/irsalhamdi/chainacademy/core/payment"
	"github.com/irsalhamdi/chainacademy/core/wallet"
)

type Header struct {
	SignedIn   bool
	UserName   string
	Instructor bool
	Admin      bool
	Wallet     wallet.Session
}

// Page is what every page template receives.
type Page struct {
	Title  string
	Header Header
	Error  string
	Data   any
}

type Home struct {
	Featured []course.Course
	Posts    []blog.Post
}

type CourseDetail struct {
	Course    course.Course
	SignedIn  bool
	Enrolled  bool
	ETHPrice  string
	Providers []string
}

type LessonPlayer struct {
	Course   course.Course
	Module   course.Module
	Lesson   course.Lesson
	Next     *course.Lesson
	Done     map[string]bool
	Progress int
}

type Dashboard struct {
	Enrollments []enrollment.Record
	Instructor  *instructor.Instructor
	Teaching    []course.Course
	Payouts     []payment.Payout
}

// Form carries submitted values back into a form after an error.
type Form struct {
	Values map[string]string
	Next   string
}

func (f Form) Get(key string) string {
	return f.Values[key]
}
