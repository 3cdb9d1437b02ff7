package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/planora/planora/internal/config"
	"github.com/planora/planora/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed a demo user with a sample event",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

const (
	demoEmail    = "demo@planora.local"
	demoPassword = "planora-demo"
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

	st := store.New(pool, nil, nil, nil)

	// Check if seed has already run.
	if existing, err := st.GetUserByEmail(ctx, demoEmail); err != nil {
		return fmt.Errorf("checking existing demo user: %w", err)
	} else if existing != nil {
		slog.Info("demo data already exists, skipping seed")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing demo password: %w", err)
	}

	owner, err := st.UpsertUser(ctx, store.UpsertUserInput{
		Email:        demoEmail,
		Name:         "Demo Planner",
		PasswordHash: string(hash),
	})
	if err != nil {
		return fmt.Errorf("creating demo user: %w", err)
	}
	slog.Info("created demo user", "id", owner.ID, "email", owner.Email)

	starts := time.Now().AddDate(0, 1, 0)
	ends := starts.Add(6 * time.Hour)
	ev, err := st.CreateEvent(ctx, store.CreateEventInput{
		OwnerID:     owner.ID,
		Name:        "Launch Party",
		Description: "Product launch celebration for the team and partners.",
		Location:    "Rooftop, HQ",
		StartsAt:    &starts,
		EndsAt:      &ends,
		Budget:      15000,
	})
	if err != nil {
		return fmt.Errorf("creating demo event: %w", err)
	}
	slog.Info("created demo event", "id", ev.ID, "name", ev.Name)

	helper, err := st.FindOrCreateUserByEmail(ctx, "helper@planora.local", "Helpful Hand", "")
	if err != nil {
		return fmt.Errorf("creating helper user: %w", err)
	}
	if _, err := st.AddTeamMember(ctx, store.AddTeamMemberInput{
		EventID:     ev.ID,
		UserID:      helper.ID,
		Role:        "member",
		Permissions: store.Permissions{CanEdit: true},
	}); err != nil {
		return fmt.Errorf("adding helper to team: %w", err)
	}

	for _, title := range []string{"Book the venue", "Order catering", "Send invitations"} {
		if _, err := st.CreateTask(ctx, store.CreateTaskInput{
			EventID: ev.ID,
			Title:   title,
		}); err != nil {
			return fmt.Errorf("creating task %q: %w", title, err)
		}
	}

	vendor, err := st.CreateVendor(ctx, store.CreateVendorInput{
		EventID:      ev.ID,
		Name:         "Golden Fork Catering",
		Category:     "catering",
		ContactEmail: "orders@goldenfork.example",
		Status:       "contacted",
	})
	if err != nil {
		return fmt.Errorf("creating demo vendor: %w", err)
	}

	if _, err := st.CreateExpense(ctx, store.CreateExpenseInput{
		EventID:  ev.ID,
		VendorID: &vendor.ID,
		Name:     "Catering deposit",
		Category: "food",
		Amount:   2500,
	}); err != nil {
		return fmt.Errorf("creating demo expense: %w", err)
	}

	fmt.Printf("\n=== Demo Data Seeded ===\n")
	fmt.Printf("User:     %s\n", demoEmail)
	fmt.Printf("Password: %s\n", demoPassword)
	fmt.Printf("Event:    %s (%s)\n", ev.Name, ev.ID)
	fmt.Printf("\nTry it:\n")
	fmt.Printf("  curl -X POST http://localhost:8080/api/v1/auth/login -d '{\"email\":\"%s\",\"password\":\"%s\"}'\n", demoEmail, demoPassword)

	return nil
}
