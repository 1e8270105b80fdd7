package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteTable = "demo_bookings"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS demo_bookings (
	id                   TEXT PRIMARY KEY,
	full_name            TEXT NOT NULL,
	work_email           TEXT NOT NULL,
	contact_number       TEXT NOT NULL,
	company_name         TEXT,
	company_size         TEXT,
	agent_of_interest    TEXT,
	demo_request_message TEXT,
	selected_date        TEXT NOT NULL,
	selected_time        TEXT NOT NULL,
	status               TEXT NOT NULL DEFAULT 'active',
	created_at           TEXT NOT NULL,
	updated_at           TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS demo_bookings_active_slot_uq
	ON demo_bookings (work_email, selected_date, selected_time)
	WHERE status = 'active';
CREATE INDEX IF NOT EXISTS demo_bookings_selected_date_idx
	ON demo_bookings (selected_date);
`

const sqliteTimeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository stores bookings in a single-file SQLite database.
// Call Migrate once before use.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Migrate creates the bookings table and its indexes if missing.
func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("migrate sqlite bookings failed: %w", err)
	}
	return nil
}

var sqliteColumns = []string{
	"id", "full_name", "work_email", "contact_number",
	"COALESCE(company_name, '')", "COALESCE(company_size, '')",
	"COALESCE(agent_of_interest, '')", "COALESCE(demo_request_message, '')",
	"selected_date", "selected_time", "status", "created_at", "updated_at",
}

func (r *SQLiteRepository) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question).RunWith(r.db)
}

func (r *SQLiteRepository) Create(ctx context.Context, b *Booking) error {
	id := uuid.NewString()
	_, err := r.builder().Insert(sqliteTable).
		Columns(
			"id", "full_name", "work_email", "contact_number", "company_name", "company_size",
			"agent_of_interest", "demo_request_message", "selected_date", "selected_time",
			"status", "created_at", "updated_at",
		).
		Values(
			id, b.Contact.Name, strings.ToLower(b.Contact.Email), b.Contact.Phone,
			nullable(b.Company), nullable(b.CompanySize), nullable(b.AgentOfInterest), nullable(b.RequirementNote),
			b.Date, b.Time, string(b.Status),
			b.CreatedAt.UTC().Format(sqliteTimeLayout), b.UpdatedAt.UTC().Format(sqliteTimeLayout),
		).
		ExecContext(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create booking failed: %w", err)
	}
	b.ID = id
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	row := r.builder().Select(sqliteColumns...).
		From(sqliteTable).
		Where(squirrel.Eq{"id": id}).
		QueryRowContext(ctx)

	b, err := scanSQLiteBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, status Status, updatedAt time.Time) error {
	res, err := r.builder().Update(sqliteTable).
		Set("status", string(status)).
		Set("updated_at", updatedAt.UTC().Format(sqliteTimeLayout)).
		Where(squirrel.Eq{"id": id}).
		ExecContext(ctx)
	return checkSQLiteUpdate(res, err, "update booking status")
}

func (r *SQLiteRepository) UpdateSchedule(ctx context.Context, id, date, slotTime string, updatedAt time.Time) error {
	res, err := r.builder().Update(sqliteTable).
		Set("selected_date", date).
		Set("selected_time", slotTime).
		Set("status", string(StatusActive)).
		Set("updated_at", updatedAt.UTC().Format(sqliteTimeLayout)).
		Where(squirrel.Eq{"id": id}).
		ExecContext(ctx)
	return checkSQLiteUpdate(res, err, "reschedule booking")
}

func (r *SQLiteRepository) FindOccupied(ctx context.Context, date string) ([]*Booking, error) {
	rows, err := r.builder().Select(sqliteColumns...).
		From(sqliteTable).
		Where(squirrel.Eq{"selected_date": date}).
		Where(squirrel.NotEq{"status": string(StatusCancelled)}).
		OrderBy("selected_time ASC").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("find occupied bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	for rows.Next() {
		b, err := scanSQLiteBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find occupied bookings failed: %w", err)
	}
	return bookings, nil
}

func (r *SQLiteRepository) FindActive(ctx context.Context, email, date, slotTime string) (*Booking, error) {
	row := r.builder().Select(sqliteColumns...).
		From(sqliteTable).
		Where(squirrel.Eq{
			"work_email":    strings.ToLower(email),
			"selected_date": date,
			"selected_time": slotTime,
			"status":        string(StatusActive),
		}).
		OrderBy("created_at ASC").
		Limit(1).
		QueryRowContext(ctx)

	b, err := scanSQLiteBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find active booking failed: %w", err)
	}
	return b, nil
}

func scanSQLiteBooking(row rowScanner) (*Booking, error) {
	var (
		b                    Booking
		status               string
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&b.ID, &b.Contact.Name, &b.Contact.Email, &b.Contact.Phone,
		&b.Company, &b.CompanySize, &b.AgentOfInterest, &b.RequirementNote,
		&b.Date, &b.Time, &status, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	b.Status = Status(status)
	var err error
	if b.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if b.UpdatedAt, err = time.Parse(sqliteTimeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
	}
	return &b, nil
}

func checkSQLiteUpdate(res sql.Result, err error, op string) error {
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("%s failed: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	// NOT NULL, CHECK and foreign key failures share the primary code, so
	// only the extended codes count.
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
