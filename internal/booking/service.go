package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nekogravitycat/demo-booking-scheduler/internal/actiontoken"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/calendar"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/logging"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/notification"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/pkg/apperror"
)

const (
	MessageBooked        = "Demo booking saved successfully"
	MessageBookedNoStore = "Demo booking received. Your confirmation has been sent."
	MessageAlreadyBooked = "You're already booked for this time. We've resent your confirmation."
	MessageRescheduled   = "Demo rescheduled successfully"
	MessageCancelled     = "Demo cancelled successfully"

	WarningNotPersisted = "Database save failed, but emails were sent"
)

type BookRequest struct {
	Contact         Contact
	Company         string
	CompanySize     string
	AgentOfInterest string
	RequirementNote string
	Date            string
	Time            string
	// LinkBase overrides the configured base URL of the manage links.
	LinkBase string
}

type BookResult struct {
	BookingID     string
	Token         string
	Date          string
	Time          string
	AlreadyBooked bool
	Warning       string
	Message       string
	CalendarLink  string
}

// RescheduleRequest identifies the booking by Token or, without one, by the
// explicit Email/Name/BookingID fields. DateTime is accepted in place of Date+Time.
type RescheduleRequest struct {
	Token     string
	Email     string
	Name      string
	BookingID string
	Date      string
	Time      string
	DateTime  string
	LinkBase  string
}

type RescheduleResult struct {
	BookingID    string
	Token        string
	Date         string
	Time         string
	Message      string
	CalendarLink string
}

type CancelRequest struct {
	Token     string
	Email     string
	Name      string
	BookingID string
}

type CancelResult struct {
	Message string
}

type SlotsResult struct {
	Date  string
	Slots []Slot
}

// ActionLink is a decoded manage link plus, when it could be loaded, the
// current state of the referenced booking.
type ActionLink struct {
	Raw         string
	Token       actiontoken.Token
	Booking     *Booking
	DisplayDate string
	DisplayTime string
}

// Service is the Booking Lifecycle Controller.
type Service interface {
	Book(ctx context.Context, req BookRequest) (*BookResult, error)
	Reschedule(ctx context.Context, req RescheduleRequest) (*RescheduleResult, error)
	Cancel(ctx context.Context, req CancelRequest) (*CancelResult, error)
	AvailableSlots(ctx context.Context, date string) (*SlotsResult, error)
	ResolveActionLink(ctx context.Context, raw string) (*ActionLink, error)
}

// Dispatcher starts message delivery without waiting for it.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg notification.Message)
}

type ServiceConfig struct {
	Location        *time.Location
	MeetingTitle    string
	MeetingLocation string
	Organizer       calendar.Participant
	LinkBase        string
}

type ServiceOption func(*service)

// WithClock overrides the wall clock used for "today" and timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) { s.now = now }
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *service) { s.logger = logger }
}

type service struct {
	repo       Repository
	codec      actiontoken.Codec
	invites    *calendar.Builder
	composer   *notification.Composer
	dispatcher Dispatcher
	cfg        ServiceConfig
	now        func() time.Time
	logger     *slog.Logger
	tracer     trace.Tracer
	validate   *validator.Validate
}

func NewService(
	repo Repository,
	codec actiontoken.Codec,
	invites *calendar.Builder,
	composer *notification.Composer,
	dispatcher Dispatcher,
	cfg ServiceConfig,
	opts ...ServiceOption,
) Service {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	cfg.LinkBase = strings.TrimRight(cfg.LinkBase, "/")

	s := &service{
		repo:       repo,
		codec:      codec,
		invites:    invites,
		composer:   composer,
		dispatcher: dispatcher,
		cfg:        cfg,
		now:        time.Now,
		logger:     slog.Default(),
		tracer:     otel.Tracer("booking"),
		validate:   validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Book(ctx context.Context, req BookRequest) (*BookResult, error) {
	ctx, span := s.tracer.Start(ctx, "booking.Book")
	defer span.End()
	logger := logging.Component(ctx, s.logger, "booking", "book")

	req = trimBookRequest(req)
	day, slot, err := s.validateBook(req)
	if err != nil {
		return nil, err
	}
	date := FormatDate(day)
	span.SetAttributes(attribute.String("booking.date", date), attribute.String("booking.time", slot))

	now := s.now()
	b := &Booking{
		Contact:         req.Contact,
		Company:         req.Company,
		CompanySize:     req.CompanySize,
		AgentOfInterest: req.AgentOfInterest,
		RequirementNote: req.RequirementNote,
		Date:            date,
		Time:            slot,
		Status:          StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	result := &BookResult{Date: date, Time: slot, Message: MessageBooked}
	switch err := s.repo.Create(ctx, b); {
	case err == nil:
		result.BookingID = b.ID
		logger.Info("booking saved", "booking_id", b.ID, "date", date, "time", slot)
	case errors.Is(err, ErrDuplicate):
		result.AlreadyBooked = true
		result.Message = MessageAlreadyBooked
		// The resent links must point at the held record so cancel frees it.
		if existing, ferr := s.repo.FindActive(ctx, req.Contact.Email, date, slot); ferr == nil {
			result.BookingID = existing.ID
		} else {
			logger.Warn("held booking lookup failed, links carry no booking id", "date", date, "time", slot, "error", ferr)
		}
		logger.Info("visitor already holds this slot", "booking_id", result.BookingID, "date", date, "time", slot)
	default:
		result.Warning = WarningNotPersisted
		result.Message = MessageBookedNoStore
		span.SetAttributes(attribute.Bool("degraded", true))
		logger.Error("booking not persisted, continuing without a record", "date", date, "time", slot, "error", err)
	}

	tok := actiontoken.Token{
		Email:     req.Contact.Email,
		Name:      req.Contact.Name,
		Date:      date,
		Time:      slot,
		BookingID: optionalID(result.BookingID),
	}
	ref, err := s.codec.Encode(tok)
	if err != nil {
		return nil, fmt.Errorf("encode action token: %w", err)
	}
	result.Token = ref

	start, _ := SlotStart(day, slot)
	event := s.event(req.Contact.Name, req.AgentOfInterest, req.RequirementNote, start)
	result.CalendarLink = calendar.ShareableLink(event)

	reschedule, cancel := s.manageLinks(req.LinkBase, ref)
	details := notification.Details{
		BookingID:       result.BookingID,
		Name:            req.Contact.Name,
		Email:           req.Contact.Email,
		Phone:           req.Contact.Phone,
		Company:         req.Company,
		CompanySize:     req.CompanySize,
		AgentOfInterest: req.AgentOfInterest,
		RequirementNote: req.RequirementNote,
		Start:           start,
		CalendarLink:    result.CalendarLink,
		RescheduleURL:   reschedule,
		CancelURL:       cancel,
		Invite:          s.invite(logger, event, req.Contact),
	}

	s.dispatch(ctx, logger, s.composer.DemoConfirmation, details)
	s.dispatch(ctx, logger, s.composer.InternalNotification, details)
	return result, nil
}

func (s *service) Reschedule(ctx context.Context, req RescheduleRequest) (*RescheduleResult, error) {
	ctx, span := s.tracer.Start(ctx, "booking.Reschedule")
	defer span.End()
	logger := logging.Component(ctx, s.logger, "booking", "reschedule")

	ident, err := s.identify(req.Token, req.Email, req.Name, req.BookingID)
	if err != nil {
		return nil, err
	}

	verr := &apperror.ValidationError{}
	s.checkEmail(verr, ident.Email)
	day, slot := s.resolveSchedule(verr, req)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	date := FormatDate(day)
	span.SetAttributes(
		attribute.String("booking.date", date),
		attribute.String("booking.time", slot),
		attribute.Bool("booking.persisted", ident.HasBookingID()),
	)

	if ident.HasBookingID() {
		id := *ident.BookingID
		if err := s.repo.UpdateSchedule(ctx, id, date, slot, s.now()); err != nil {
			span.SetAttributes(attribute.Bool("degraded", true))
			logger.Error("reschedule not persisted", "booking_id", id, "error", err)
		} else {
			logger.Info("booking rescheduled", "booking_id", id, "date", date, "time", slot)
		}
	}

	ident.Date = date
	ident.Time = slot
	ref, err := s.codec.Encode(ident)
	if err != nil {
		return nil, fmt.Errorf("encode action token: %w", err)
	}

	start, _ := SlotStart(day, slot)
	event := s.event(ident.Name, "", "", start)
	result := &RescheduleResult{
		Token:        ref,
		Date:         date,
		Time:         slot,
		Message:      MessageRescheduled,
		CalendarLink: calendar.ShareableLink(event),
	}
	if ident.HasBookingID() {
		result.BookingID = *ident.BookingID
	}

	reschedule, cancel := s.manageLinks(req.LinkBase, ref)
	s.dispatch(ctx, logger, s.composer.DemoRescheduled, notification.Details{
		BookingID:     result.BookingID,
		Name:          ident.Name,
		Email:         ident.Email,
		Start:         start,
		CalendarLink:  result.CalendarLink,
		RescheduleURL: reschedule,
		CancelURL:     cancel,
		Invite:        s.invite(logger, event, Contact{Name: ident.Name, Email: ident.Email}),
	})
	return result, nil
}

func (s *service) Cancel(ctx context.Context, req CancelRequest) (*CancelResult, error) {
	ctx, span := s.tracer.Start(ctx, "booking.Cancel")
	defer span.End()
	logger := logging.Component(ctx, s.logger, "booking", "cancel")

	ident, err := s.identify(req.Token, req.Email, req.Name, req.BookingID)
	if err != nil {
		return nil, err
	}

	verr := &apperror.ValidationError{}
	s.checkEmail(verr, ident.Email)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("booking.persisted", ident.HasBookingID()))

	if ident.HasBookingID() {
		id := *ident.BookingID
		if err := s.repo.UpdateStatus(ctx, id, StatusCancelled, s.now()); err != nil {
			span.SetAttributes(attribute.Bool("degraded", true))
			logger.Error("cancellation not persisted", "booking_id", id, "error", err)
		} else {
			logger.Info("booking cancelled", "booking_id", id)
		}
	}

	s.dispatch(ctx, logger, s.composer.DemoCancelled, notification.Details{
		Name:  ident.Name,
		Email: ident.Email,
	})
	return &CancelResult{Message: MessageCancelled}, nil
}

func (s *service) AvailableSlots(ctx context.Context, date string) (*SlotsResult, error) {
	ctx, span := s.tracer.Start(ctx, "booking.AvailableSlots")
	defer span.End()
	logger := logging.Component(ctx, s.logger, "booking", "available_slots")

	day, err := ParseDate(date, s.cfg.Location)
	if err != nil {
		return nil, err
	}
	normalized := FormatDate(day)
	span.SetAttributes(attribute.String("booking.date", normalized))

	var occupied []string
	bookings, err := s.repo.FindOccupied(ctx, normalized)
	if err != nil {
		span.SetAttributes(attribute.Bool("degraded", true))
		logger.Warn("occupancy unavailable, showing every slot", "date", normalized, "error", err)
	}
	for _, b := range bookings {
		if b.IsActive() {
			occupied = append(occupied, b.Time)
		}
	}

	slots := AvailableSlots(day, s.now(), occupied)
	span.SetAttributes(attribute.Int("booking.available", len(slots)))
	return &SlotsResult{Date: normalized, Slots: slots}, nil
}

func (s *service) ResolveActionLink(ctx context.Context, raw string) (*ActionLink, error) {
	tok, err := s.decode(raw)
	if err != nil {
		return nil, err
	}

	link := &ActionLink{
		Raw:         strings.TrimSpace(raw),
		Token:       tok,
		DisplayDate: tok.Date,
		DisplayTime: tok.Time,
	}
	if day, err := ParseDate(tok.Date, s.cfg.Location); err == nil {
		link.DisplayDate = day.Format("Monday, January 2, 2006")
	}
	if label, ok := NormalizeTime(tok.Time); ok {
		link.DisplayTime = DisplayLabel(label)
	}

	if tok.HasBookingID() {
		b, err := s.repo.GetByID(ctx, *tok.BookingID)
		if err != nil {
			logging.Component(ctx, s.logger, "booking", "resolve_link").
				Warn("booking lookup failed, using link contents", "booking_id", *tok.BookingID, "error", err)
		} else {
			link.Booking = b
		}
	}
	return link, nil
}

func (s *service) decode(raw string) (actiontoken.Token, error) {
	if strings.TrimSpace(raw) == "" {
		return actiontoken.Token{}, ErrInvalidLink
	}
	tok, err := s.codec.Decode(raw)
	if err != nil {
		return actiontoken.Token{}, fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	return tok, nil
}

// identify resolves who is acting: from the token when one is given,
// otherwise from the explicit fields. An explicit name fills a nameless token.
func (s *service) identify(raw, email, name, bookingID string) (actiontoken.Token, error) {
	if strings.TrimSpace(raw) != "" {
		tok, err := s.decode(raw)
		if err != nil {
			return actiontoken.Token{}, err
		}
		if tok.Name == "" {
			tok.Name = strings.TrimSpace(name)
		}
		return tok, nil
	}
	return actiontoken.Token{
		Email:     strings.TrimSpace(email),
		Name:      strings.TrimSpace(name),
		BookingID: optionalID(strings.TrimSpace(bookingID)),
	}, nil
}

func (s *service) validateBook(req BookRequest) (time.Time, string, error) {
	verr := &apperror.ValidationError{}
	if req.Contact.Name == "" {
		verr.Add("name", "is required")
	}
	s.checkEmail(verr, req.Contact.Email)
	if req.Contact.Phone == "" {
		verr.Add("phone", "is required")
	}
	day, slot := s.checkDateTime(verr, req.Date, req.Time)
	return day, slot, verr.OrNil()
}

func (s *service) checkEmail(verr *apperror.ValidationError, email string) {
	switch {
	case email == "":
		verr.Add("email", "is required")
	case s.validate.Var(email, "email") != nil:
		verr.Add("email", "is not a valid email address")
	}
}

func (s *service) checkDateTime(verr *apperror.ValidationError, date, slotTime string) (time.Time, string) {
	var (
		day  time.Time
		slot string
		err  error
	)
	if date == "" {
		verr.Add("date", "is required")
	} else if day, err = ParseDate(date, s.cfg.Location); err != nil {
		verr.Add("date", "must be a date in YYYY-MM-DD format")
	}

	if slotTime == "" {
		verr.Add("time", "is required")
	} else if label, ok := NormalizeTime(slotTime); !ok || !onGrid(label) {
		verr.Add("time", "must be one of the bookable slot times")
	} else {
		slot = label
	}
	return day, slot
}

// resolveSchedule reads the new date and time, falling back to a full
// timestamp when the separate fields are missing.
func (s *service) resolveSchedule(verr *apperror.ValidationError, req RescheduleRequest) (time.Time, string) {
	date, slotTime := strings.TrimSpace(req.Date), strings.TrimSpace(req.Time)
	if (date == "" || slotTime == "") && strings.TrimSpace(req.DateTime) != "" {
		if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(req.DateTime)); err == nil {
			local := ts.In(s.cfg.Location)
			date, slotTime = FormatDate(local), local.Format("15:04")
		}
	}
	return s.checkDateTime(verr, date, slotTime)
}

func (s *service) event(name, agent, note string, start time.Time) calendar.Event {
	description := "Demo session"
	if name != "" {
		description += " with " + name
	}
	description += "."
	if agent != "" {
		description += " Agent of Interest: " + agent + "."
	}
	if note != "" {
		description += " Notes: " + note
	}
	return calendar.Event{
		Title:       s.cfg.MeetingTitle,
		Description: description,
		Location:    s.cfg.MeetingLocation,
		Start:       start,
		End:         start.Add(MeetingDuration),
	}
}

// invite builds the attachment. A failure only drops the attachment.
func (s *service) invite(logger *slog.Logger, e calendar.Event, attendee Contact) string {
	name := attendee.Name
	if name == "" {
		name = "Guest"
	}
	doc, err := s.invites.BuildInvite(calendar.Invite{
		Event:     e,
		Organizer: s.cfg.Organizer,
		Attendee:  calendar.Participant{Name: name, Email: attendee.Email},
	})
	if err != nil {
		logger.Warn("calendar invite not generated", "error", err)
		return ""
	}
	return doc
}

func (s *service) manageLinks(base, ref string) (reschedule, cancel string) {
	base = strings.TrimRight(base, "/")
	if base == "" {
		base = s.cfg.LinkBase
	}
	q := "?token=" + url.QueryEscape(ref)
	return base + "/reschedule-demo" + q, base + "/cancel-demo" + q
}

func (s *service) dispatch(
	ctx context.Context,
	logger *slog.Logger,
	compose func(notification.Details) (notification.Message, error),
	d notification.Details,
) {
	msg, err := compose(d)
	if err != nil {
		logger.Error("message not composed", "to", d.Email, "error", err)
		return
	}
	s.dispatcher.Dispatch(ctx, msg)
}

func trimBookRequest(req BookRequest) BookRequest {
	req.Contact.Name = strings.TrimSpace(req.Contact.Name)
	req.Contact.Email = strings.TrimSpace(req.Contact.Email)
	req.Contact.Phone = strings.TrimSpace(req.Contact.Phone)
	req.Company = strings.TrimSpace(req.Company)
	req.CompanySize = strings.TrimSpace(req.CompanySize)
	req.AgentOfInterest = strings.TrimSpace(req.AgentOfInterest)
	req.RequirementNote = strings.TrimSpace(req.RequirementNote)
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	return req
}

func onGrid(label string) bool {
	for _, l := range slotGrid {
		if l == label {
			return true
		}
	}
	return false
}

func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
