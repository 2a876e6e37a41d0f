package repository

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"dating-backend/internal/database"
	"dating-backend/internal/models"
	"dating-backend/internal/pagination"

	"github.com/jackc/pgx/v5/pgxpool"
)

// testPool migrates and empties the database at TEST_DATABASE_URL, skipping when unset
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	migrateURL := "pgx5://" + strings.TrimPrefix(strings.TrimPrefix(url, "postgres://"), "postgresql://")
	if err := database.RunMigrations(migrateURL); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), url)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)

	_, err = pool.Exec(context.Background(),
		`TRUNCATE messages, likes, photos, account_roles, accounts CASCADE`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}

func seedAccount(t *testing.T, repo *AccountRepository, id string, born time.Time) {
	t.Helper()
	now := time.Now().UTC()
	a := &models.Account{
		ID:           id,
		Username:     id,
		PasswordHash: "x",
		Gender:       "female",
		DateOfBirth:  born,
		KnownAs:      id,
		Created:      now,
		LastActive:   now,
	}
	if err := repo.Create(context.Background(), a, []string{"Member"}); err != nil {
		t.Fatalf("create account %s: %v", id, err)
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestLikeRepository_RepeatedLikeIsUniqueViolation(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	accounts := NewAccountRepository(pool)
	seedAccount(t, accounts, "ann", date(1990, 1, 1))
	seedAccount(t, accounts, "bob", date(1990, 1, 1))

	likes := NewLikeRepository(pool)
	like := &models.Like{LikerID: "ann", LikeeID: "bob", CreatedAt: time.Now().UTC()}
	if err := likes.Create(ctx, like); err != nil {
		t.Fatalf("first like: %v", err)
	}
	if err := likes.Create(ctx, like); !errors.Is(err, ErrUniqueViolation) {
		t.Fatalf("second like err = %v, want ErrUniqueViolation", err)
	}

	likers, err := likes.LikersOf(ctx, "bob")
	if err != nil {
		t.Fatalf("LikersOf: %v", err)
	}
	if len(likers) != 1 || likers[0] != "ann" {
		t.Fatalf("likers = %v, want [ann]", likers)
	}
}

func TestMessageRepository_TombstonesThenPurge(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	accounts := NewAccountRepository(pool)
	seedAccount(t, accounts, "ann", date(1990, 1, 1))
	seedAccount(t, accounts, "bob", date(1990, 1, 1))

	messages := NewMessageRepository(pool)
	msg := &models.Message{ID: "m1", SenderID: "ann", RecipientID: "bob", Content: "hi", MessageSent: time.Now().UTC()}
	if err := messages.Create(ctx, msg); err != nil {
		t.Fatalf("create message: %v", err)
	}

	purged, err := messages.UpdateTombstones(ctx, "m1", func(m *models.Message) error {
		m.SenderDeleted = true
		return nil
	})
	if err != nil || purged {
		t.Fatalf("sender delete: purged=%v err=%v", purged, err)
	}
	got, err := messages.GetByID(ctx, "m1")
	if err != nil {
		t.Fatalf("GetByID after one side: %v", err)
	}
	if !got.SenderDeleted || got.RecipientDeleted {
		t.Fatalf("flags = %v/%v, want true/false", got.SenderDeleted, got.RecipientDeleted)
	}

	purged, err = messages.UpdateTombstones(ctx, "m1", func(m *models.Message) error {
		m.RecipientDeleted = true
		return nil
	})
	if err != nil || !purged {
		t.Fatalf("recipient delete: purged=%v err=%v", purged, err)
	}
	if _, err := messages.GetByID(ctx, "m1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByID after purge err = %v, want ErrNotFound", err)
	}

	_, err = messages.UpdateTombstones(ctx, "m1", func(*models.Message) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("tombstone on purged row err = %v, want ErrNotFound", err)
	}
}

func TestMessageRepository_MutateErrorRollsBack(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	accounts := NewAccountRepository(pool)
	seedAccount(t, accounts, "ann", date(1990, 1, 1))
	seedAccount(t, accounts, "bob", date(1990, 1, 1))

	messages := NewMessageRepository(pool)
	msg := &models.Message{ID: "m1", SenderID: "ann", RecipientID: "bob", Content: "hi", MessageSent: time.Now().UTC()}
	if err := messages.Create(ctx, msg); err != nil {
		t.Fatalf("create message: %v", err)
	}

	denied := errors.New("denied")
	_, err := messages.UpdateTombstones(ctx, "m1", func(m *models.Message) error {
		m.SenderDeleted = true
		return denied
	})
	if !errors.Is(err, denied) {
		t.Fatalf("err = %v, want mutate error", err)
	}
	got, err := messages.GetByID(ctx, "m1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.SenderDeleted {
		t.Fatal("rejected mutation was saved")
	}
}

func TestAccountRepository_DiscoverBirthDateWindowIsInclusive(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	accounts := NewAccountRepository(pool)
	from, to := date(1980, 3, 10), date(2000, 3, 9)
	seedAccount(t, accounts, "too-old", from.AddDate(0, 0, -1))
	seedAccount(t, accounts, "oldest", from)
	seedAccount(t, accounts, "middle", date(1990, 6, 1))
	seedAccount(t, accounts, "youngest", to)
	seedAccount(t, accounts, "too-young", to.AddDate(0, 0, 1))

	page, err := pagination.Paginate(ctx,
		accounts.Discover(AccountFilter{BornFrom: from, BornTo: to}),
		pagination.NewParams(1, 10, pagination.MaxPageSize))
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}

	got := map[string]bool{}
	for _, a := range page.Items {
		got[a.ID] = true
	}
	if page.Meta.TotalItems != 3 || len(got) != 3 || !got["oldest"] || !got["middle"] || !got["youngest"] {
		t.Fatalf("discovered %v (total %d), want oldest, middle and youngest", got, page.Meta.TotalItems)
	}
}

func TestPhotoRepository_SecondMainIsUniqueViolation(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	seedAccount(t, NewAccountRepository(pool), "ann", date(1990, 1, 1))

	photos := NewPhotoRepository(pool)
	now := time.Now().UTC()
	if err := photos.Create(ctx, &models.Photo{ID: "p1", AccountID: "ann", URL: "u1", DateAdded: now, IsMain: true}); err != nil {
		t.Fatalf("first main: %v", err)
	}
	err := photos.Create(ctx, &models.Photo{ID: "p2", AccountID: "ann", URL: "u2", DateAdded: now, IsMain: true})
	if !errors.Is(err, ErrUniqueViolation) {
		t.Fatalf("second main err = %v, want ErrUniqueViolation", err)
	}
	if err := photos.Create(ctx, &models.Photo{ID: "p2", AccountID: "ann", URL: "u2", DateAdded: now}); err != nil {
		t.Fatalf("non-main retry: %v", err)
	}
}
