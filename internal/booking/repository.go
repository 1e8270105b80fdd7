package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the Booking Record Store.
type Repository interface {
	// Create inserts the booking and assigns its ID.
	// It returns ErrDuplicate when the same contact already holds the slot.
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	UpdateStatus(ctx context.Context, id string, status Status, updatedAt time.Time) error

	// UpdateSchedule moves the booking to a new date and time and marks it active again.
	UpdateSchedule(ctx context.Context, id, date, slotTime string, updatedAt time.Time) error

	// FindOccupied lists bookings on date whose status is not cancelled.
	FindOccupied(ctx context.Context, date string) ([]*Booking, error)

	// FindActive returns the active booking email holds for the slot, or ErrNotFound.
	FindActive(ctx context.Context, email, date, slotTime string) (*Booking, error)
}

const bookingsTable = "public.demo_bookings"

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var pgColumns = []string{
	"id", "full_name", "work_email", "contact_number",
	"COALESCE(company_name, '')", "COALESCE(company_size, '')",
	"COALESCE(agent_of_interest, '')", "COALESCE(demo_request_message, '')",
	"to_char(selected_date, 'YYYY-MM-DD')", "selected_time",
	"COALESCE(status, 'active')", "created_at", "updated_at",
}

func (r *pgxRepository) Create(ctx context.Context, b *Booking) error {
	date, err := time.Parse(dateLayout, b.Date)
	if err != nil {
		return fmt.Errorf("invalid booking date %q: %w", b.Date, err)
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert(bookingsTable).
		Columns(
			"full_name", "work_email", "contact_number", "company_name", "company_size",
			"agent_of_interest", "demo_request_message", "selected_date", "selected_time",
			"status", "created_at", "updated_at",
		).
		Values(
			b.Contact.Name, strings.ToLower(b.Contact.Email), b.Contact.Phone,
			nullable(b.Company), nullable(b.CompanySize), nullable(b.AgentOfInterest), nullable(b.RequirementNote),
			date, b.Time, string(b.Status), b.CreatedAt, b.UpdatedAt,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&b.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("create booking failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(pgColumns...).
		From(bookingsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation {
			// Not a UUID, so no such booking.
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, id string, status Status, updatedAt time.Time) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update(bookingsTable).
		Set("status", string(status)).
		Set("updated_at", updatedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update booking status query failed: %w", err)
	}
	return r.exec(ctx, query, args, "update booking status")
}

func (r *pgxRepository) UpdateSchedule(ctx context.Context, id, date, slotTime string, updatedAt time.Time) error {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return fmt.Errorf("invalid booking date %q: %w", date, err)
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update(bookingsTable).
		Set("selected_date", d).
		Set("selected_time", slotTime).
		Set("status", string(StatusActive)).
		Set("updated_at", updatedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build reschedule booking query failed: %w", err)
	}
	return r.exec(ctx, query, args, "reschedule booking")
}

func (r *pgxRepository) exec(ctx context.Context, query string, args []any, op string) error {
	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return ErrDuplicate
			case pgerrcode.InvalidTextRepresentation:
				return ErrNotFound
			}
		}
		return fmt.Errorf("%s failed: %w", op, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) FindOccupied(ctx context.Context, date string) ([]*Booking, error) {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid booking date %q: %w", date, err)
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(pgColumns...).
		From(bookingsTable).
		Where(squirrel.Eq{"selected_date": d}).
		Where(squirrel.Or{
			squirrel.Eq{"status": nil},
			squirrel.NotEq{"status": string(StatusCancelled)},
		}).
		OrderBy("selected_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find occupied query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find occupied bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
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

func (r *pgxRepository) FindActive(ctx context.Context, email, date, slotTime string) (*Booking, error) {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid booking date %q: %w", date, err)
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(pgColumns...).
		From(bookingsTable).
		Where(squirrel.Eq{
			"work_email":    strings.ToLower(email),
			"selected_date": d,
			"selected_time": slotTime,
			"status":        string(StatusActive),
		}).
		OrderBy("created_at ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find active booking query failed: %w", err)
	}

	b, err := scanBooking(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find active booking failed: %w", err)
	}
	return b, nil
}

// rowScanner is satisfied by pgx.Row, pgx.Rows and *sql.Row/*sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*Booking, error) {
	var (
		b      Booking
		status string
	)
	if err := row.Scan(
		&b.ID, &b.Contact.Name, &b.Contact.Email, &b.Contact.Phone,
		&b.Company, &b.CompanySize, &b.AgentOfInterest, &b.RequirementNote,
		&b.Date, &b.Time, &status, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.Status = Status(status)
	return &b, nil
}

// nullable stores empty optional fields as NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
