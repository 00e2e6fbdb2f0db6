package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expohall/booking-engine/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	ownerIDs, err := seedOwners(context.Background(), pool, 80)
	if err != nil {
		log.Fatalf("seed owners: %v", err)
	}
	if err := seedVisitors(context.Background(), pool, 5000); err != nil {
		log.Fatalf("seed visitors: %v", err)
	}
	if err := seedSlots(context.Background(), pool, ownerIDs); err != nil {
		log.Fatalf("seed slots: %v", err)
	}

	log.Println("seed complete")
}

func seedOwners(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d owners", count)

	kinds := []string{"exhibitor", "partner"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Company()
		kind := kinds[gofakeit.Number(0, len(kinds)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO owners (id, name, kind, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, kind)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("owners seeded")
	return ids, nil
}

func seedVisitors(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d visitors", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()
			tier := pickTier()

			_, err := tx.Exec(ctx, `
				INSERT INTO visitors (id, name, email, tier, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, id, name, email, tier)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("visitors seeded: %d/%d", end, count)
	}

	log.Println("visitors seeded")
	return nil
}

// pickTier skews toward paying tiers so bookings go through in simulations.
func pickTier() string {
	switch n := gofakeit.Number(1, 10); {
	case n <= 3:
		return "free"
	case n <= 8:
		return "premium"
	default:
		return "vip"
	}
}

// seedSlots bulk-generates each owner's meeting slots across the event
// window: 3 event days, half-hour slots during exhibition hours.
func seedSlots(ctx context.Context, pool *pgxpool.Pool, ownerIDs []uuid.UUID) error {
	log.Printf("seeding slots for %d owners", len(ownerIDs))

	eventStart := time.Now().UTC().Truncate(24 * time.Hour).Add(7 * 24 * time.Hour)
	modalities := []string{"in-person", "virtual"}

	total := 0
	for _, ownerID := range ownerIDs {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for day := 0; day < 3; day++ {
			dayStart := eventStart.Add(time.Duration(day) * 24 * time.Hour).Add(9 * time.Hour)
			for half := 0; half < 16; half++ {
				start := dayStart.Add(time.Duration(half) * 30 * time.Minute)
				modality := modalities[gofakeit.Number(0, len(modalities)-1)]
				location := ""
				if modality == "in-person" {
					location = "Booth " + gofakeit.Letter() + "-" + gofakeit.DigitN(3)
				}

				_, err := tx.Exec(ctx, `
					INSERT INTO time_slots (id, owner_id, start_time, end_time, modality, location, max_bookings, current_bookings, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, $6, $7, 0, now(), now())
				`, uuid.New(), ownerID, start, start.Add(30*time.Minute), modality, location, gofakeit.Number(1, 3))
				if err != nil {
					_ = tx.Rollback(ctx)
					return err
				}
				total++
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}

	log.Printf("slots seeded: %d", total)
	return nil
}
