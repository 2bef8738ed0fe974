package kvdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"trippin/database"
	"trippin/model"
)

func openBackend(t *testing.T) *database.Backend {
	t.Helper()
	b, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestUserStore_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	b := openBackend(t)

	u := &model.User{Email: "Ana@Example.com", Profile: model.Profile{Name: "Ana"}}
	if err := b.Users.CreateUser(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.ID == uuid.Nil {
		t.Fatal("expected generated id")
	}

	byEmail, err := b.Users.GetUserByEmail(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != u.ID {
		t.Fatalf("id mismatch: %s != %s", byEmail.ID, u.ID)
	}

	if err := b.Users.CreateUser(ctx, &model.User{Email: "ana@example.com"}); err == nil {
		t.Fatal("expected duplicate email to fail")
	}

	byEmail.Profile.Country = "ES"
	if err := b.Users.UpdateUser(ctx, byEmail); err != nil {
		t.Fatalf("update user: %v", err)
	}
	byID, err := b.Users.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.Profile.Country != "ES" {
		t.Fatalf("profile not updated: %+v", byID.Profile)
	}
}

func TestUserStore_NotFound(t *testing.T) {
	ctx := context.Background()
	b := openBackend(t)

	if _, err := b.Users.GetUserByID(ctx, uuid.New()); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := b.Users.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := b.Users.UpdateUser(ctx, &model.User{ID: uuid.New()}); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOrderStore_ListIsPerUserAndOrdered(t *testing.T) {
	ctx := context.Background()
	b := openBackend(t)

	alice, bob := uuid.New(), uuid.New()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	orders := []*model.Order{
		{ID: "o-2", UserID: alice, PlanName: "Standard", CreatedAt: base.Add(time.Hour)},
		{ID: "o-1", UserID: alice, PlanName: "Basic", CreatedAt: base},
		{ID: "o-3", UserID: bob, PlanName: "Premium", CreatedAt: base},
	}
	for _, o := range orders {
		if err := b.Orders.AppendOrder(ctx, o); err != nil {
			t.Fatalf("append %s: %v", o.ID, err)
		}
	}

	got, err := b.Orders.ListOrders(ctx, alice)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "o-1" || got[1].ID != "o-2" {
		t.Fatalf("unexpected orders: %+v", got)
	}

	if err := b.Orders.AppendOrder(ctx, orders[0]); err == nil {
		t.Fatal("expected duplicate order to fail")
	}

	o, err := b.Orders.GetOrder(ctx, "o-3")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if o.UserID != bob {
		t.Fatalf("wrong owner %s", o.UserID)
	}
	if _, err := b.Orders.GetOrder(ctx, "missing"); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()
	b := openBackend(t)
	id := uuid.New()

	if err := b.Sessions.SaveSession(ctx, "tok", id); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := b.Sessions.GetSession(ctx, "tok")
	if err != nil || got != id {
		t.Fatalf("get: %v %s", err, got)
	}
	if err := b.Sessions.DeleteSession(ctx, "tok"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := b.Sessions.GetSession(ctx, "tok"); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSearchStore(t *testing.T) {
	ctx := context.Background()
	b := openBackend(t)

	s := &model.Search{
		ID:          "s-1",
		Origin:      "LHR",
		Destination: "IST",
		Flights:     []model.Flight{{Airline: "Turkish Airlines", Price: 280}},
	}
	if err := b.Searches.SaveSearch(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := b.Searches.GetSearch(ctx, "s-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Destination != "IST" || len(got.Flights) != 1 || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected search: %+v", got)
	}
	if err := b.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
