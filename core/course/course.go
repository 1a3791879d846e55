package course

import "time"

// InstructorRef is the part of the instructor shown alongside a course.
type InstructorRef struct {
	ID     string `json:"id" db:"instructor_id"`
	Name   string `json:"name" db:"name"`
	Avatar string `json:"avatar" db:"avatar"`
}

type Course struct {
	ID            string        `json:"id" db:"course_id"`
	Slug          string        `json:"slug" db:"slug"`
	Title         string        `json:"title" db:"title"`
	Description   string        `json:"description" db:"description"`
	Price         int           `json:"price" db:"price"`
	Rating        float64       `json:"rating" db:"rating"`
	StudentsCount int           `json:"studentsCount" db:"students_count"`
	CoverImage    string        `json:"coverImage" db:"cover_image"`
	Featured      bool          `json:"featured" db:"featured"`
	Instructor    InstructorRef `json:"instructor" db:"instructor"`
	Modules       []Module      `json:"modules,omitempty" db:"-"`
	CreatedAt     time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time     `json:"updatedAt" db:"updated_at"`
}

type Module struct {
	ID       string   `json:"id" db:"module_id"`
	CourseID string   `json:"-" db:"course_id"`
	Position int      `json:"position" db:"position"`
	Title    string   `json:"title" db:"title"`
	Lessons  []Lesson `json:"lessons" db:"-"`
}

type Lesson struct {
	ID       string `json:"id" db:"lesson_id"`
	ModuleID string `json:"moduleId" db:"module_id"`
	CourseID string `json:"-" db:"course_id"`
	Position int    `json:"position" db:"position"`
	Title    string `json:"title" db:"title"`
	Duration int    `json:"duration" db:"duration"`
	VideoURL string `json:"-" db:"video_url"`
	Free     bool   `json:"free" db:"free"`
}

// Page is one page of the catalog.
type Page struct {
	Courses    []Course `json:"courses"`
	Page       int      `json:"page"`
	TotalPages int      `json:"totalPages"`
	Total      int      `json:"total"`
}

type CourseNew struct {
	Title       string      `json:"title" validate:"required,max=120"`
	Description string      `json:"description" validate:"required,max=5000"`
	Price       int         `json:"price" validate:"gte=0,lte=1000000"`
	CoverImage  string      `json:"coverImage" validate:"omitempty,url"`
	Modules     []ModuleNew `json:"modules" validate:"required,min=1,dive"`
}

type ModuleNew struct {
	Title   string      `json:"title" validate:"required,max=120"`
	Lessons []LessonNew `json:"lessons" validate:"required,min=1,dive"`
}

type LessonNew struct {
	Title    string `json:"title" validate:"required,max=120"`
	Duration int    `json:"duration" validate:"gte=0"`
	VideoURL string `json:"videoUrl" validate:"omitempty,url"`
	Free     bool   `json:"free"`
}

// Lesson finds a lesson by id together with its module.
func (c Course) Lesson(id string) (Lesson, Module, bool) {
	for _, m := range c.Modules {
		for _, l := range m.Lessons {
			if l.ID == id {
				return l, m, true
			}
		}
	}
	return Lesson{}, Module{}, false
}

func (c Course) FirstLesson() (Lesson, bool) {
	for _, m := range c.Modules {
		if len(m.Lessons) > 0 {
			return m.Lessons[0], true
		}
	}
	return Lesson{}, false
}

// NextLesson returns the lesson following id in course order.
func (c Course) NextLesson(id string) (Lesson, bool) {
	found := false
	for _, m := range c.Modules {
		for _, l := range m.Lessons {
			if found {
				return l, true
			}
			found = l.ID == id
		}
	}
	return Lesson{}, false
}

func (c Course) LessonCount() int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.Lessons)
	}
	return n
}
