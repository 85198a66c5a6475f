package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/tmarchal/chantier/internal/assignment"
	"github.com/tmarchal/chantier/internal/config"
	"github.com/tmarchal/chantier/internal/contact"
	"github.com/tmarchal/chantier/internal/object"
	"github.com/tmarchal/chantier/internal/task"
	"github.com/tmarchal/chantier/internal/team"
	"github.com/tmarchal/chantier/internal/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed a demo account with contacts and job sites",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

const (
	seedEmail    = "demo@chantier.local"
	seedPassword = "demo-password"
)

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	userStore := user.NewStore(pool, cfg.Session.TTL)

	if _, err := userStore.GetByEmail(ctx, seedEmail); err == nil {
		slog.Info("demo data already exists, skipping seed")
		return nil
	}

	u, err := userStore.Create(ctx, user.CreateUserInput{
		Email:    seedEmail,
		Password: seedPassword,
		Name:     "Demo Foreman",
	})
	if err != nil {
		return fmt.Errorf("creating demo user: %w", err)
	}

	contactStore := contact.NewStore(pool)
	objectStore := object.NewStore(pool)
	assignmentStore := assignment.NewStore(pool)
	taskStore := task.NewStore(pool)
	teamService := team.NewService(team.NewPgStore(pool))

	date := func(y int, m time.Month, d int) *time.Time {
		t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &t
	}
	cost := func(v float64) *float64 { return &v }

	o, err := objectStore.Create(ctx, object.CreateInput{
		Name:        "Riverside Villa",
		Location:    "14 Quai des Pêcheurs",
		Description: "Two-storey villa renovation",
		Start:       date(2026, time.March, 1),
		End:         date(2026, time.November, 30),
	}, &u.ID, nil)
	if err != nil {
		return fmt.Errorf("creating demo object: %w", err)
	}

	contacts := []contact.CreateInput{
		{
			Name:        "Anton the Mason",
			Roles:       []string{"mason"},
			Phone:       "+33 6 12 34 56 78",
			Cost:        cost(280),
			WorkingFrom: date(2026, time.March, 1),
			WorkingTo:   date(2026, time.July, 31),
		},
		{
			Name:  "Bricolage Supplies SARL",
			Roles: []string{"supplier"},
			Email: "orders@bricolage.example",
		},
		{
			Name:        "Claire the Electrician",
			Roles:       []string{"electrician"},
			Phone:       "+33 6 98 76 54 32",
			Cost:        cost(350),
			WorkingFrom: date(2026, time.May, 1),
		},
	}

	var firstContact *contact.Contact
	for _, in := range contacts {
		c, err := contactStore.Create(ctx, in, &u.ID, nil)
		if err != nil {
			return fmt.Errorf("creating demo contact %q: %w", in.Name, err)
		}
		slog.Info("created contact", "name", c.Name, "id", c.ID)
		if firstContact == nil {
			firstContact = c
		}
	}

	if _, err := assignmentStore.Assign(ctx, firstContact.ID, o.ID, assignment.AssignInput{
		IsPaid: true,
		From:   date(2026, time.March, 1),
		To:     date(2026, time.July, 31),
	}); err != nil {
		return fmt.Errorf("assigning demo worker: %w", err)
	}

	if _, err := taskStore.Create(ctx, o.ID, task.CreateInput{
		Title:          "Order cement",
		RepeatType:     task.RepeatWeekly,
		RepeatInterval: 1,
		NextDueDate:    date(2026, time.March, 2),
	}); err != nil {
		return fmt.Errorf("creating demo task: %w", err)
	}

	t, err := teamService.Create(ctx, u.ID, "Riverside Crew")
	if err != nil {
		return fmt.Errorf("creating demo team: %w", err)
	}

	fmt.Printf("\n=== Demo Data Seeded ===\n")
	fmt.Printf("User:      %s / %s\n", seedEmail, seedPassword)
	fmt.Printf("Job site:  %s (%s)\n", o.Name, o.ID)
	fmt.Printf("Team:      %s (join code %s)\n", t.Name, t.InviteCode)
	fmt.Printf("\nTry it:\n")
	fmt.Printf("  curl -X POST http://localhost:%d/api/v1/auth/login -d '{\"email\":%q,\"password\":%q}'\n", cfg.Server.Port, seedEmail, seedPassword)

	return nil
}
