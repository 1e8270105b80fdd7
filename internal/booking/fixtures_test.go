package booking

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/demo-booking-scheduler/internal/actiontoken"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/calendar"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/notification"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/notification/notificationtest"
)

const (
	companyEmail = "sales@example.com"
	visitorEmail = "pat@example.org"
)

var errStoreDown = errors.New("connection refused")

func openTestDB(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewSQLiteRepository(db)
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

// failingRepository fails every call it is told to fail.
type failingRepository struct {
	Repository
	mu          sync.Mutex
	failWrites  bool
	failReads   bool
	createCalls int
}

func (r *failingRepository) Create(ctx context.Context, b *Booking) error {
	r.mu.Lock()
	r.createCalls++
	r.mu.Unlock()
	if r.failWrites {
		return &StoreError{Op: "create", Attempts: 3, Err: errStoreDown}
	}
	return r.Repository.Create(ctx, b)
}

func (r *failingRepository) UpdateStatus(ctx context.Context, id string, status Status, at time.Time) error {
	if r.failWrites {
		return &StoreError{Op: "update_status", Attempts: 3, Err: errStoreDown}
	}
	return r.Repository.UpdateStatus(ctx, id, status, at)
}

func (r *failingRepository) UpdateSchedule(ctx context.Context, id, date, slotTime string, at time.Time) error {
	if r.failWrites {
		return &StoreError{Op: "update_schedule", Attempts: 3, Err: errStoreDown}
	}
	return r.Repository.UpdateSchedule(ctx, id, date, slotTime, at)
}

func (r *failingRepository) FindOccupied(ctx context.Context, date string) ([]*Booking, error) {
	if r.failReads {
		return nil, errStoreDown
	}
	return r.Repository.FindOccupied(ctx, date)
}

func (r *failingRepository) FindActive(ctx context.Context, email, date, slotTime string) (*Booking, error) {
	if r.failReads {
		return nil, errStoreDown
	}
	return r.Repository.FindActive(ctx, email, date, slotTime)
}

func (r *failingRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	if r.failReads {
		return nil, errStoreDown
	}
	return r.Repository.GetByID(ctx, id)
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

type fixture struct {
	svc        Service
	repo       Repository
	codec      actiontoken.Codec
	recorder   *notificationtest.Recorder
	dispatcher *notification.Dispatcher
}

// newFixture wires the service against repo with a fixed clock in GST (+04).
func newFixture(t *testing.T, repo Repository, now time.Time, codec actiontoken.Codec) *fixture {
	t.Helper()

	if codec == nil {
		codec = actiontoken.NewBase64Codec()
	}
	clock := func() time.Time { return now }
	rec := &notificationtest.Recorder{}
	disp := notification.NewDispatcher(rec, time.Second, nil)

	svc := NewService(
		repo,
		codec,
		calendar.NewBuilder(calendar.WithClock(clock), calendar.WithEntropy(zeroReader{})),
		notification.NewComposer(notification.ComposerConfig{
			From:         notification.Address{Name: "Demo Team", Email: "demo@example.com"},
			CompanyEmail: companyEmail,
			FrontendURL:  "https://www.example.com",
			MeetingTitle: "Product Demo",
		}),
		disp,
		ServiceConfig{
			Location:        testLocation,
			MeetingTitle:    "Product Demo",
			MeetingLocation: "Online",
			Organizer:       calendar.Participant{Name: "Demo Team", Email: "demo@example.com"},
			LinkBase:        "https://api.example.com/",
		},
		WithClock(clock),
	)
	return &fixture{svc: svc, repo: repo, codec: codec, recorder: rec, dispatcher: disp}
}

var testLocation = time.FixedZone("GST", 4*3600)

// wait drains background sends so the recorder can be inspected.
func (f *fixture) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.dispatcher.Wait(ctx))
}

func bookRequest(date, slot string) BookRequest {
	return BookRequest{
		Contact: Contact{Name: "Pat O'Brien", Email: visitorEmail, Phone: "+971500000000"},
		Company: "Acme",
		Date:    date,
		Time:    slot,
	}
}
