package remote

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/freeday/internal/database"
	"github.com/dukerupert/freeday/internal/model"
	"github.com/dukerupert/freeday/internal/server"
	"github.com/dukerupert/freeday/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newBackend(t *testing.T) (*httptest.Server, *server.Server, *store.PersonStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := server.New(db, server.Config{}, nil, discardLogger())
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return srv, s, store.NewPersonStore(db)
}

func TestListPeopleAndAvailability(t *testing.T) {
	srv, _, people := newBackend(t)
	anna, _ := people.Create("Anna", "#111111")
	people.Create("Ben", "#222222")

	c := NewClient(Config{BaseURL: srv.URL + "/"}, discardLogger())
	ctx := context.Background()

	got, err := c.ListPeople(ctx)
	if err != nil {
		t.Fatalf("list people: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Anna" {
		t.Errorf("people = %+v", got)
	}

	if err := c.UpsertAvailability(ctx, anna.ID, "2026-02-03", false); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rows, err := c.ListAvailability(ctx, "2026-01-26", "2026-03-08")
	if err != nil {
		t.Fatalf("list availability: %v", err)
	}
	if len(rows) != 1 || rows[0].PersonID != anna.ID || rows[0].Available {
		t.Errorf("rows = %+v", rows)
	}
}

func TestErrStatus(t *testing.T) {
	srv, _, _ := newBackend(t)
	c := NewClient(Config{BaseURL: srv.URL}, discardLogger())

	err := c.UpsertAvailability(context.Background(), "nobody", "2026-02-03", false)
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("err = %v, want ErrStatus", err)
	}

	_, err = c.ListAvailability(context.Background(), "bad", "2026-02-03")
	if !errors.Is(err, ErrStatus) {
		t.Errorf("err = %v, want ErrStatus", err)
	}
}

func TestErrStatusWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, discardLogger())
	if _, err := c.ListPeople(context.Background()); !errors.Is(err, ErrStatus) {
		t.Errorf("err = %v, want ErrStatus", err)
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Config{BaseURL: url, Timeout: time.Second}, discardLogger())
	_, err := c.ListPeople(context.Background())
	if err == nil {
		t.Fatal("expected error for closed server")
	}
	if errors.Is(err, ErrStatus) {
		t.Error("network error should not be ErrStatus")
	}
}

func TestSubscribeReceivesRows(t *testing.T) {
	srv, s, people := newBackend(t)
	anna, _ := people.Create("Anna", "#111111")

	c := NewClient(Config{BaseURL: srv.URL}, discardLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan model.AvailabilityRow, 1)
	unsubscribe, err := c.Subscribe(ctx, func(row model.AvailabilityRow) {
		got <- row
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsubscribe()

	deadline := time.Now().Add(2 * time.Second)
	for s.Hub().ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if err := c.UpsertAvailability(ctx, anna.ID, "2026-02-03", false); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	select {
	case row := <-got:
		if row.PersonID != anna.ID || row.Day != "2026-02-03" || row.Available {
			t.Errorf("row = %+v", row)
		}
	case <-ctx.Done():
		t.Fatal("no notification received")
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	srv, s, _ := newBackend(t)
	c := NewClient(Config{BaseURL: srv.URL}, discardLogger())

	unsubscribe, err := c.Subscribe(context.Background(), func(model.AvailabilityRow) {})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	unsubscribe()
	unsubscribe()

	deadline := time.Now().Add(2 * time.Second)
	for s.Hub().ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := s.Hub().ClientCount(); n != 0 {
		t.Errorf("hub clients = %d after unsubscribe, want 0", n)
	}
}

func TestSubscribeDialError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, discardLogger())
	if _, err := c.Subscribe(context.Background(), func(model.AvailabilityRow) {}); err == nil {
		t.Error("expected dial error")
	}
}

func TestWSURL(t *testing.T) {
	tests := []struct{ base, want string }{
		{"http://localhost:8080", "ws://localhost:8080/ws"},
		{"https://cal.example.com/", "wss://cal.example.com/ws"},
	}
	for _, tt := range tests {
		c := NewClient(Config{BaseURL: tt.base}, discardLogger())
		if got := c.wsURL(); got != tt.want {
			t.Errorf("wsURL(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}
