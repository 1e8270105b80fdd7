package booking

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nekogravitycat/demo-booking-scheduler/internal/pkg/apperror"
)

var (
	ErrNotFound    = errors.New("booking not found")
	ErrDuplicate   = errors.New("booking already exists for this slot")
	ErrInvalidDate = apperror.New(http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
	ErrInvalidLink = apperror.New(http.StatusBadRequest, "this link is invalid, please request a new one")
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

// MeetingDuration is the fixed length of every demo.
const MeetingDuration = time.Hour

// Contact identifies the visitor who requested the demo.
type Contact struct {
	Name  string
	Email string
	Phone string
}

// Booking is the durable demo booking entity.
type Booking struct {
	ID              string
	Contact         Contact
	Company         string
	CompanySize     string
	AgentOfInterest string
	RequirementNote string
	Date            string // YYYY-MM-DD
	Time            string // slot label as submitted
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsActive treats a missing status as active, matching rows written before the column existed.
func (b *Booking) IsActive() bool {
	return b.Status == "" || b.Status == StatusActive
}

// StoreError reports a persistence failure after the retry policy gave up.
// The lifecycle controller absorbs it.
type StoreError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
