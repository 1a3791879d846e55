package enrollment

import "time"

type Enrollment struct {
	ID           string    `json:"id" db:"enrollment_id"`
	CourseID     string    `json:"courseId" db:"course_id"`
	UserID       string    `json:"userId" db:"user_id"`
	EnrolledAt   time.Time `json:"enrollmentDate" db:"enrolled_at"`
	LastAccessAt time.Time `json:"lastAccessDate" db:"last_access_at"`
	Progress     int       `json:"progress" db:"progress"`
	Completed    bool      `json:"completed" db:"completed"`
}

// Record is an enrollment joined with what the dashboard shows about its
// course.
type Record struct {
	Enrollment
	CourseSlug     string `json:"courseSlug" db:"course_slug"`
	CourseTitle    string `json:"courseTitle" db:"course_title"`
	CoverImage     string `json:"coverImage" db:"cover_image"`
	InstructorName string `json:"instructorName" db:"instructor_name"`
}

type ProgressUp struct {
	Progress int `json:"progress" validate:"gte=0,lte=100"`
}

// Percent turns completed lessons into a progress value in [0, 100].
func Percent(done, total int) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	p := done * 100 / total
	if p > 100 {
		p = 100
	}
	return p
}
