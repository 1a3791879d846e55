package course

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/irsalhamdi/chainacademy/core/instructor"
	"github.com/irsalhamdi/chainacademy/database"
	"github.com/irsalhamdi/chainacademy/money"
	"github.com/irsalhamdi/chainacademy/validate"
	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"
)

//go:embed seed/catalog.yaml
var catalogYAML []byte

type catalog struct {
	Instructors []struct {
		Key         string `yaml:"key"`
		Name        string `yaml:"name"`
		Avatar      string `yaml:"avatar"`
		Bio         string `yaml:"bio"`
		Expertise   string `yaml:"expertise"`
		PayoutEmail string `yaml:"payout_email"`
		Wallet      string `yaml:"wallet"`
	} `yaml:"instructors"`
	Courses []struct {
		Slug        string  `yaml:"slug"`
		Title       string  `yaml:"title"`
		Description string  `yaml:"description"`
		Price       string  `yaml:"price"`
		Rating      float64 `yaml:"rating"`
		Students    int     `yaml:"students"`
		Cover       string  `yaml:"cover"`
		Featured    bool    `yaml:"featured"`
		Instructor  string  `yaml:"instructor"`
		Modules     []struct {
			Title   string `yaml:"title"`
			Lessons []struct {
				Title    string `yaml:"title"`
				Duration int    `yaml:"duration"`
				Video    string `yaml:"video"`
				Free     bool   `yaml:"free"`
			} `yaml:"lessons"`
		} `yaml:"modules"`
	} `yaml:"courses"`
}

// Seed loads the bundled catalog when the database holds no course yet. It
// reports whether anything was inserted.
func Seed(ctx context.Context, db *sqlx.DB) (bool, error) {
	var cat catalog
	if err := yaml.Unmarshal(catalogYAML, &cat); err != nil {
		return false, fmt.Errorf("decoding seed catalog: %w", err)
	}

	n, err := Count(ctx, db)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	now := time.Now().UTC().Truncate(time.Second)
	err = database.Transaction(db, func(tx sqlx.ExtContext) error {
		refs := make(map[string]InstructorRef, len(cat.Instructors))
		for _, si := range cat.Instructors {
			in := instructor.Instructor{
				ID:            validate.GenerateID(),
				Name:          si.Name,
				Avatar:        si.Avatar,
				Bio:           si.Bio,
				Expertise:     si.Expertise,
				PayoutEmail:   si.PayoutEmail,
				WalletAddress: si.Wallet,
				CreatedAt:     now,
			}
			if err := instructor.Create(ctx, tx, in); err != nil {
				return err
			}
			refs[si.Key] = InstructorRef{ID: in.ID, Name: in.Name, Avatar: in.Avatar}
		}

		for i, sc := range cat.Courses {
			ref, ok := refs[sc.Instructor]
			if !ok {
				return fmt.Errorf("course %q: unknown instructor %q", sc.Slug, sc.Instructor)
			}

			price, err := money.Cents(sc.Price)
			if err != nil {
				return fmt.Errorf("course %q: price: %w", sc.Slug, err)
			}

			// Catalog order is listing order, newest first.
			created := now.Add(-time.Duration(i) * time.Hour)
			c := Course{
				ID:            validate.GenerateID(),
				Slug:          sc.Slug,
				Title:         sc.Title,
				Description:   sc.Description,
				Price:         price,
				Rating:        sc.Rating,
				StudentsCount: sc.Students,
				CoverImage:    sc.Cover,
				Featured:      sc.Featured,
				Instructor:    ref,
				CreatedAt:     created,
				UpdatedAt:     created,
			}

			for mi, sm := range sc.Modules {
				m := Module{ID: validate.GenerateID(), CourseID: c.ID, Position: mi + 1, Title: sm.Title}
				for li, sl := range sm.Lessons {
					m.Lessons = append(m.Lessons, Lesson{
						ID:       validate.GenerateID(),
						ModuleID: m.ID,
						CourseID: c.ID,
						Position: li + 1,
						Title:    sl.Title,
						Duration: sl.Duration,
						VideoURL: sl.Video,
						Free:     sl.Free,
					})
				}
				c.Modules = append(c.Modules, m)
			}

			if err := store(ctx, tx, c); err != nil {
				return fmt.Errorf("course %q: %w", sc.Slug, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("seeding catalog: %w", err)
	}

	return true, nil
}
