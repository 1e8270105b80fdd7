package http

import (
	"github.com/nekogravitycat/demo-booking-scheduler/internal/booking"
)

// BookDemoRequest is the body of POST /api/book-demo.
// Field checks happen in the service so that every problem is reported at once.
type BookDemoRequest struct {
	Name            string `json:"name" binding:"max=200"`
	Email           string `json:"email" binding:"max=320"`
	Phone           string `json:"phone" binding:"max=50"`
	Company         string `json:"company" binding:"max=200"`
	CompanySize     string `json:"company_size" binding:"max=50"`
	AgentOfInterest string `json:"agent_of_interest" binding:"max=200"`
	Message         string `json:"message" binding:"max=5000"`
	Date            string `json:"date"`
	Time            string `json:"time"`
}

func (r BookDemoRequest) toService(linkBase string) booking.BookRequest {
	return booking.BookRequest{
		Contact:         booking.Contact{Name: r.Name, Email: r.Email, Phone: r.Phone},
		Company:         r.Company,
		CompanySize:     r.CompanySize,
		AgentOfInterest: r.AgentOfInterest,
		RequirementNote: r.Message,
		Date:            r.Date,
		Time:            r.Time,
		LinkBase:        linkBase,
	}
}

type BookDemoResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	Warning       string `json:"warning,omitempty"`
	BookingRef    string `json:"booking_ref"`
	BookingID     string `json:"booking_id,omitempty"`
	AlreadyBooked bool   `json:"already_booked"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	CalendarLink  string `json:"calendar_link"`
}

func NewBookDemoResponse(r *booking.BookResult) BookDemoResponse {
	return BookDemoResponse{
		Success:       true,
		Message:       r.Message,
		Warning:       r.Warning,
		BookingRef:    r.Token,
		BookingID:     r.BookingID,
		AlreadyBooked: r.AlreadyBooked,
		Date:          r.Date,
		Time:          r.Time,
		CalendarLink:  r.CalendarLink,
	}
}

// RescheduleDemoRequest accepts either a token or the explicit identity fields.
type RescheduleDemoRequest struct {
	Token     string `json:"token"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	BookingID string `json:"booking_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	DateTime  string `json:"date_time"`
}

type RescheduleDemoResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	BookingRef   string `json:"booking_ref"`
	BookingID    string `json:"booking_id,omitempty"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	CalendarLink string `json:"calendar_link"`
}

type CancelDemoRequest struct {
	Token     string `json:"token"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	BookingID string `json:"booking_id"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type SlotResponse struct {
	Value   string `json:"value"`
	Display string `json:"display"`
}

type AvailableSlotsResponse struct {
	Success bool           `json:"success"`
	Date    string         `json:"date"`
	Slots   []SlotResponse `json:"slots"`
}

func NewAvailableSlotsResponse(r *booking.SlotsResult) AvailableSlotsResponse {
	slots := make([]SlotResponse, len(r.Slots))
	for i, s := range r.Slots {
		slots[i] = SlotResponse{Value: s.Label, Display: s.DisplayLabel}
	}
	return AvailableSlotsResponse{Success: true, Date: r.Date, Slots: slots}
}
