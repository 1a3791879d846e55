package enrollment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/irsalhamdi/chainacademy/core/claims"
	"github.com/irsalhamdi/chainacademy/core/course"
	"github.com/irsalhamdi/chainacademy/core/user"
	"github.com/irsalhamdi/chainacademy/database"
	"github.com/irsalhamdi/chainacademy/database/dbtest"
	"github.com/irsalhamdi/chainacademy/validate"
	"github.com/jmoiron/sqlx"
)

func setup(t *testing.T) (*sqlx.DB, user.User, course.Course) {
	t.Helper()

	db := dbtest.New(t)
	ctx := context.Background()

	if _, err := course.Seed(ctx, db); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	now := time.Now().UTC()
	u := user.User{
		ID:           validate.GenerateID(),
		Name:         "Linus",
		Email:        "linus@test.com",
		PasswordHash: "x",
		Role:         claims.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Create(ctx, db, u); err != nil {
		t.Fatalf("creating user: %v", err)
	}

	c, err := course.FetchBySlug(ctx, db, "introduction-to-blockchain")
	if err != nil {
		t.Fatalf("fetching course: %v", err)
	}

	return db, u, c
}

func TestEnrollIdempotent(t *testing.T) {
	db, u, c := setup(t)
	ctx := context.Background()

	ok, err := Check(ctx, db, u.ID, c.ID)
	if err != nil || ok {
		t.Fatalf("before enroll: enrolled=%v err=%v", ok, err)
	}

	first, err := Enroll(ctx, db, u.ID, c.ID)
	if err != nil {
		t.Fatalf("enrolling: %v", err)
	}
	second, err := Enroll(ctx, db, u.ID, c.ID)
	if err != nil {
		t.Fatalf("enrolling twice: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("second enroll created %s, want %s", second.ID, first.ID)
	}

	ok, err = Check(ctx, db, u.ID, c.ID)
	if err != nil || !ok {
		t.Fatalf("after enroll: enrolled=%v err=%v", ok, err)
	}

	after, err := course.Fetch(ctx, db, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.StudentsCount != c.StudentsCount+1 {
		t.Fatalf("students count %d, want %d", after.StudentsCount, c.StudentsCount+1)
	}

	if ok, err := Check(ctx, db, "", c.ID); err != nil || ok {
		t.Fatalf("anonymous check: enrolled=%v err=%v", ok, err)
	}
}

func TestListByUser(t *testing.T) {
	db, u, c := setup(t)
	ctx := context.Background()

	rs, err := ListByUser(ctx, db, u.ID)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(rs) != 0 {
		t.Fatalf("expected no enrollments, got %d", len(rs))
	}

	if _, err := Enroll(ctx, db, u.ID, c.ID); err != nil {
		t.Fatalf("enrolling: %v", err)
	}
	if err := Touch(ctx, db, u.ID, c.ID); err != nil {
		t.Fatalf("touching: %v", err)
	}

	rs, err = ListByUser(ctx, db, u.ID)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(rs) != 1 {
		t.Fatalf("expected one enrollment, got %d", len(rs))
	}
	if rs[0].CourseTitle != c.Title || rs[0].InstructorName != c.Instructor.Name {
		t.Fatalf("unexpected record %+v", rs[0])
	}

	if err := Touch(ctx, db, u.ID, validate.GenerateID()); !errors.Is(err, database.ErrDBNotFound) {
		t.Fatalf("touching a missing enrollment: %v", err)
	}
}

func TestCompleteLesson(t *testing.T) {
	db, u, c := setup(t)
	ctx := context.Background()

	first, _ := c.FirstLesson()
	if _, err := CompleteLesson(ctx, db, u.ID, c, first.ID); !errors.Is(err, database.ErrDBNotFound) {
		t.Fatalf("completing without enrollment: %v", err)
	}

	if _, err := Enroll(ctx, db, u.ID, c.ID); err != nil {
		t.Fatalf("enrolling: %v", err)
	}

	e, err := CompleteLesson(ctx, db, u.ID, c, first.ID)
	if err != nil {
		t.Fatalf("completing: %v", err)
	}
	if e.Progress != 25 || e.Completed {
		t.Fatalf("after one lesson: %+v", e)
	}

	e, err = CompleteLesson(ctx, db, u.ID, c, first.ID)
	if err != nil {
		t.Fatalf("completing again: %v", err)
	}
	if e.Progress != 25 {
		t.Fatalf("repeated completion counted twice: %d", e.Progress)
	}

	for _, m := range c.Modules {
		for _, l := range m.Lessons {
			if e, err = CompleteLesson(ctx, db, u.ID, c, l.ID); err != nil {
				t.Fatalf("completing %s: %v", l.Title, err)
			}
		}
	}
	if e.Progress != 100 || !e.Completed {
		t.Fatalf("after all lessons: %+v", e)
	}

	done, err := CompletedLessons(ctx, db, u.ID, c.ID)
	if err != nil || len(done) != c.LessonCount() {
		t.Fatalf("completed lessons: %d, err %v", len(done), err)
	}

	if _, err := CompleteLesson(ctx, db, u.ID, c, validate.GenerateID()); !errors.Is(err, ErrUnknownLesson) {
		t.Fatalf("expected ErrUnknownLesson, got %v", err)
	}
}

func TestUpdateProgress(t *testing.T) {
	db, u, c := setup(t)
	ctx := context.Background()

	if _, err := UpdateProgress(ctx, db, u.ID, c.ID, ProgressUp{Progress: 10}); !errors.Is(err, database.ErrDBNotFound) {
		t.Fatalf("updating without enrollment: %v", err)
	}
	if _, err := Enroll(ctx, db, u.ID, c.ID); err != nil {
		t.Fatalf("enrolling: %v", err)
	}

	e, err := UpdateProgress(ctx, db, u.ID, c.ID, ProgressUp{Progress: 100})
	if err != nil {
		t.Fatalf("updating: %v", err)
	}
	if !e.Completed {
		t.Fatal("progress 100 must complete the course")
	}

	e, err = UpdateProgress(ctx, db, u.ID, c.ID, ProgressUp{Progress: 40})
	if err != nil {
		t.Fatalf("updating: %v", err)
	}
	if e.Completed {
		t.Fatal("progress 40 must not be completed")
	}

	if _, err := UpdateProgress(ctx, db, u.ID, c.ID, ProgressUp{Progress: 150}); !errors.Is(err, validate.ErrInvalid) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		done, total, want int
	}{
		{0, 4, 0},
		{1, 4, 25},
		{1, 3, 33},
		{4, 4, 100},
		{5, 4, 100},
		{1, 0, 0},
	}
	for _, tt := range tests {
		if got := Percent(tt.done, tt.total); got != tt.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tt.done, tt.total, got, tt.want)
		}
	}
}
