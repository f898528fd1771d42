package push

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dstclair/fanpulse/internal/database"
	"github.com/dstclair/fanpulse/internal/model"
	"github.com/dstclair/fanpulse/internal/scoring"
	"github.com/dstclair/fanpulse/internal/store"
)

// pushCounter records how many pushes each endpoint path received.
type pushCounter struct {
	mu   sync.Mutex
	hits map[string]int
}

func (c *pushCounter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	c.hits[r.URL.Path]++
	c.mu.Unlock()
	w.WriteHeader(http.StatusCreated)
}

func (c *pushCounter) count(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits[path]
}

func newTestSubscriptionKeys(t *testing.T) (p256dh, auth string) {
	t.Helper()
	// A VAPID public key is a valid uncompressed P-256 point, which is
	// exactly what the p256dh subscription key is.
	pub, _, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate subscription keys: %v", err)
	}
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		t.Fatalf("generate auth secret: %v", err)
	}
	return pub, base64.RawURLEncoding.EncodeToString(raw)
}

func TestSchedulerSendsOneReminderPerDay(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	counter := &pushCounter{hits: make(map[string]int)}
	srv := httptest.NewServer(counter)
	t.Cleanup(srv.Close)

	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	subs := store.NewPushStore(db)
	events := store.NewScoreEventStore(db)
	scores := store.NewUserScoreStore(db)
	tracker := scoring.NewStreakTracker(events, scores)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := NewNotifier(NewService(pub, priv), subs, nil, logger)

	ctx := context.Background()
	p256dh, auth := newTestSubscriptionKeys(t)
	// streaker has an alive streak and nothing scored today; idler has no
	// events at all; scorer already earned points today.
	for _, path := range []string{"/streaker", "/idler", "/scorer"} {
		user := path[1:]
		if _, err := subs.CreateSubscription(ctx, user, srv.URL+path, p256dh, auth, "phone"); err != nil {
			t.Fatalf("subscribe %s: %v", user, err)
		}
	}

	now := time.Now()
	insertEvent := func(userID string, at time.Time) {
		t.Helper()
		tx, err := db.Begin()
		if err != nil {
			t.Fatalf("begin: %v", err)
		}
		ev := &model.ScoreEvent{
			UserID:         userID,
			ActivityType:   "daily_checkin",
			Points:         10,
			ReferenceType:  "checkin",
			ReferenceID:    at.Format(time.RFC3339Nano),
			IdempotencyKey: userID + ":" + at.Format(time.RFC3339Nano),
			CreatedAt:      at.UTC(),
		}
		if err := events.Insert(ctx, tx, ev); err != nil {
			t.Fatalf("insert event: %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}
	insertEvent("streaker", now.Add(-48*time.Hour))
	insertEvent("streaker", now.Add(-24*time.Hour))
	insertEvent("scorer", now)

	s := NewScheduler(notifier, subs, events, tracker, now.Hour(), logger)
	s.now = func() time.Time { return now }

	s.tick(ctx)
	s.tick(ctx)

	if got := counter.count("/streaker"); got != 1 {
		t.Errorf("streaker received %d reminders, want exactly 1", got)
	}
	if got := counter.count("/idler"); got != 0 {
		t.Errorf("idler received %d reminders, want 0", got)
	}
	if got := counter.count("/scorer"); got != 0 {
		t.Errorf("scorer received %d reminders, want 0", got)
	}

	sent, err := subs.WasSent(ctx, "streaker", model.NotifTypeStreakReminder, now.Format("2006-01-02"))
	if err != nil {
		t.Fatalf("was sent: %v", err)
	}
	if !sent {
		t.Error("reminder send was not recorded")
	}
}

func TestSchedulerSkipsOffHours(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	counter := &pushCounter{hits: make(map[string]int)}
	srv := httptest.NewServer(counter)
	t.Cleanup(srv.Close)

	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	subs := store.NewPushStore(db)
	events := store.NewScoreEventStore(db)
	tracker := scoring.NewStreakTracker(events, store.NewUserScoreStore(db))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := NewNotifier(NewService(pub, priv), subs, nil, logger)

	ctx := context.Background()
	p256dh, auth := newTestSubscriptionKeys(t)
	if _, err := subs.CreateSubscription(ctx, "streaker", srv.URL+"/streaker", p256dh, auth, ""); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	now := time.Now()
	wrongHour := (now.Hour() + 1) % 24
	s := NewScheduler(notifier, subs, events, tracker, wrongHour, logger)
	s.now = func() time.Time { return now }

	s.tick(ctx)

	if got := counter.count("/streaker"); got != 0 {
		t.Errorf("got %d reminders outside the configured hour, want 0", got)
	}
}
