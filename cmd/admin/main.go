// Command admin runs maintenance tasks against the academy database.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/irsalhamdi/chainacademy/config"
	"github.com/irsalhamdi/chainacademy/core/course"
	"github.com/irsalhamdi/chainacademy/core/payment"
	"github.com/irsalhamdi/chainacademy/database"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const prefix = "ACADEMY"

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := newRoot(log).Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

type app struct {
	log *logrus.Logger
	cfg config.Config
}

// open parses the configuration and connects to the database. Commands that
// change data call it from their RunE.
func (a *app) open() (*sqlx.DB, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if _, err := conf.Parse(prefix, &a.cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	db, err := database.Open(a.cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}
	return db, nil
}

func newRoot(log *logrus.Logger) *cobra.Command {
	a := &app{log: log}

	root := &cobra.Command{
		Use:           "admin",
		Short:         "Chain Academy maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	courses := &cobra.Command{Use: "courses", Short: "Catalog maintenance"}
	courses.AddCommand(a.freeCmd())

	payments := &cobra.Command{Use: "payments", Short: "Payment maintenance"}
	payments.AddCommand(a.expireCmd())

	root.AddCommand(a.migrateCmd(), a.seedCmd(), courses, payments)
	return root
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migrating database: %w", err)
			}
			a.log.Info("migrations complete")
			return nil
		},
	}
}

func (a *app) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the bundled catalog into an empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()

			seeded, err := course.Seed(cmd.Context(), db)
			if err != nil {
				return fmt.Errorf("seeding catalog: %w", err)
			}
			if !seeded {
				a.log.Info("catalog already has courses, nothing seeded")
				return nil
			}
			a.log.Info("catalog seeded")
			return nil
		},
	}
}

func (a *app) freeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "free",
		Short: "Set the price of every course to zero",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := course.MakeAllFree(cmd.Context(), db)
			if err != nil {
				return err
			}
			a.log.WithField("updated", n).Info("courses are now free")
			return nil
		},
	}
}

func (a *app) expireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "Expire pending payments older than ACADEMY_PAYMENT_EXPIRE_AFTER",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			n, err := payment.ExpireStale(ctx, db, a.cfg.Payment.ExpireAfter)
			if err != nil {
				return err
			}
			a.log.WithField("expired", n).Info("stale payments expired")
			return nil
		},
	}
}
