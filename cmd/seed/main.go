package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casavista/appointment-engine/internal/db"
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

	advisorIDs, err := seedAdvisors(context.Background(), pool, 25)
	if err != nil {
		log.Fatalf("seed advisors: %v", err)
	}
	propertyIDs, err := seedProperties(context.Background(), pool, 200)
	if err != nil {
		log.Fatalf("seed properties: %v", err)
	}
	if err := seedAppointments(context.Background(), pool, advisorIDs, propertyIDs, 1500); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func seedAdvisors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d advisors", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		email := gofakeit.Email()
		phone := gofakeit.Phone()

		_, err := tx.Exec(ctx, `
			INSERT INTO advisors (id, name, email, phone, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, name, email, phone)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("advisors seeded")
	return ids, nil
}

func seedProperties(ctx context.Context, pool *pgxpool.Pool, count int) ([]int64, error) {
	log.Printf("seeding %d properties", count)

	kinds := []string{"apartment", "house", "penthouse", "townhouse", "plot"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]int64, 0, count)
	for i := 0; i < count; i++ {
		kind := kinds[gofakeit.Number(0, len(kinds)-1)]
		title := gofakeit.AdjectiveDescriptive() + " " + kind + " in " + gofakeit.City()
		location := gofakeit.Street() + ", " + gofakeit.City()

		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO properties (title, location, created_at, updated_at)
			VALUES ($1, $2, now(), now())
			RETURNING id
		`, title, location).Scan(&id)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("properties seeded")
	return ids, nil
}

func seedAppointments(ctx context.Context, pool *pgxpool.Pool, advisorIDs []uuid.UUID, propertyIDs []int64, count int) error {
	log.Printf("seeding %d appointments", count)

	types := []string{"viewing", "consultation", "valuation", "follow_up"}
	statuses := []string{"pending", "confirmed", "completed", "cancelled", "no_show"}
	visitTypes := []string{"in_person", "video_call"}
	contactMethods := []string{"email", "phone", "whatsapp"}

	const batchSize = 250

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
			advisorID := advisorIDs[gofakeit.Number(0, len(advisorIDs)-1)]
			propertyID := propertyIDs[gofakeit.Number(0, len(propertyIDs)-1)]
			status := statuses[gofakeit.Number(0, len(statuses)-1)]

			// Hour-aligned slots spread over ±30 days keep seeded rows clear
			// of the active-slot uniqueness constraint most of the time; the
			// odd collision is skipped via ON CONFLICT DO NOTHING.
			slot := time.Now().Truncate(time.Hour).
				Add(time.Duration(gofakeit.Number(-30*24, 30*24)) * time.Hour)

			var reason, notes *string
			if status == "cancelled" {
				r := gofakeit.Sentence(6)
				reason = &r
			}
			if status == "no_show" {
				n := gofakeit.Sentence(8)
				notes = &n
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO appointments (
					id, advisor_id, property_id, client_name, client_email, client_phone,
					appointment_type, visit_type, attendees, contact_method, marketing_consent,
					appointment_date, status, cancellation_reason, follow_up_notes,
					created_at, updated_at
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now(), now())
				ON CONFLICT DO NOTHING
			`,
				id, advisorID, propertyID, gofakeit.Name(), gofakeit.Email(), gofakeit.Phone(),
				types[gofakeit.Number(0, len(types)-1)],
				visitTypes[gofakeit.Number(0, len(visitTypes)-1)],
				gofakeit.Number(1, 4),
				contactMethods[gofakeit.Number(0, len(contactMethods)-1)],
				gofakeit.Bool(),
				slot, status, reason, notes,
			)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("appointments seeded: %d/%d", end, count)
	}

	log.Println("appointments seeded")
	return nil
}
