package booking

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/demo-booking-scheduler/internal/actiontoken"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/notification"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/pkg/apperror"
)

// 2024-05-20 12:00 in GST.
var fixedNow = time.Date(2024, 5, 20, 8, 0, 0, 0, time.UTC)

func slotLabels(res *SlotsResult) []string {
	out := make([]string, 0, len(res.Slots))
	for _, s := range res.Slots {
		out = append(out, s.Label)
	}
	return out
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func cancelLink(t *testing.T, text string) string {
	t.Helper()
	for _, line := range strings.Split(text, "\n") {
		if link, ok := strings.CutPrefix(strings.TrimSpace(line), "Cancel your demo: "); ok {
			return link
		}
	}
	require.FailNow(t, "no cancel link in message")
	return ""
}

func TestBookPersistsAndNotifies(t *testing.T) {
	f := newFixture(t, openTestDB(t), fixedNow, nil)
	ctx := context.Background()

	res, err := f.svc.Book(ctx, bookRequest("2024-06-01", "10:00"))
	require.NoError(t, err)
	f.wait(t)

	assert.NotEmpty(t, res.BookingID)
	assert.Empty(t, res.Warning)
	assert.False(t, res.AlreadyBooked)
	assert.Equal(t, MessageBooked, res.Message)
	assert.Contains(t, res.CalendarLink, "dates=20240601T060000Z%2F20240601T070000Z")

	tok, err := f.codec.Decode(res.Token)
	require.NoError(t, err)
	assert.Equal(t, visitorEmail, tok.Email)
	assert.Equal(t, "2024-06-01", tok.Date)
	assert.Equal(t, "10:00", tok.Time)
	require.True(t, tok.HasBookingID())
	assert.Equal(t, res.BookingID, *tok.BookingID)

	stored, err := f.repo.GetByID(ctx, res.BookingID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, stored.Status)
	assert.Equal(t, "Acme", stored.Company)
	assert.True(t, stored.CreatedAt.Equal(fixedNow))

	visitor := f.recorder.To(visitorEmail)
	require.Len(t, visitor, 1)
	confirmation := visitor[0]
	assert.Equal(t, notification.KindDemoConfirmation, confirmation.Kind)
	assert.Equal(t, []string{companyEmail}, confirmation.Bcc)
	require.Len(t, confirmation.Attachments, 1)
	invite := string(confirmation.Attachments[0].Content)
	assert.Contains(t, invite, "DTSTART:20240601T060000Z\r\n")
	assert.Contains(t, invite, "ATTENDEE;CN=Pat O'Brien;RSVP=TRUE:MAILTO:pat@example.org")
	assert.Contains(t, confirmation.Text, "https://api.example.com/reschedule-demo?token=")
	assert.Contains(t, confirmation.Text, "https://api.example.com/cancel-demo?token=")

	internal := f.recorder.To(companyEmail)
	require.Len(t, internal, 1)
	assert.Equal(t, notification.KindInternalNotification, internal[0].Kind)
	assert.Equal(t, visitorEmail, internal[0].ReplyTo)
}

func TestBookStoreFailureStillConfirms(t *testing.T) {
	repo := &failingRepository{Repository: openTestDB(t), failWrites: true}
	f := newFixture(t, repo, fixedNow, nil)

	res, err := f.svc.Book(context.Background(), bookRequest("2024-06-01", "10:00"))
	require.NoError(t, err)
	f.wait(t)

	assert.Equal(t, WarningNotPersisted, res.Warning)
	assert.Empty(t, res.BookingID)
	assert.NotEmpty(t, res.Token)

	tok, err := f.codec.Decode(res.Token)
	require.NoError(t, err)
	assert.False(t, tok.HasBookingID())

	assert.Len(t, f.recorder.Messages(), 2)
	assert.Len(t, f.recorder.To(visitorEmail), 1)
	assert.Len(t, f.recorder.To(companyEmail), 1)
}

func TestBookTwiceIsAlreadyBooked(t *testing.T) {
	f := newFixture(t, openTestDB(t), fixedNow, nil)
	ctx := context.Background()

	first, err := f.svc.Book(ctx, bookRequest("2024-06-01", "10:00"))
	require.NoError(t, err)

	// Same slot written in the 12-hour form.
	res, err := f.svc.Book(ctx, bookRequest("2024-06-01", "10:00 AM"))
	require.NoError(t, err)
	f.wait(t)

	assert.True(t, res.AlreadyBooked)
	assert.Empty(t, res.Warning)
	assert.Equal(t, MessageAlreadyBooked, res.Message)
	assert.Equal(t, first.BookingID, res.BookingID)
	assert.Len(t, f.recorder.Kind(notification.KindDemoConfirmation), 2)

	tok, err := f.codec.Decode(res.Token)
	require.NoError(t, err)
	require.True(t, tok.HasBookingID())
	assert.Equal(t, first.BookingID, *tok.BookingID)

	internal := f.recorder.Kind(notification.KindInternalNotification)
	require.Len(t, internal, 2)
	for _, m := range internal {
		assert.Contains(t, m.Text, "Booking ID: "+first.BookingID)
	}
}

func TestCancelFromResentConfirmationFreesSlot(t *testing.T) {
	f := newFixture(t, openTestDB(t), fixedNow, nil)
	ctx := context.Background()

	first, err := f.svc.Book(ctx, bookRequest("2024-06-01", "10:00"))
	require.NoError(t, err)
	f.wait(t)
	again, err := f.svc.Book(ctx, bookRequest("2024-06-01", "10:00"))
	require.NoError(t, err)
	require.True(t, again.AlreadyBooked)
	f.wait(t)

	confirmations := f.recorder.Kind(notification.KindDemoConfirmation)
	require.Len(t, confirmations, 2)
	resent := tokenFromLink(t, cancelLink(t, confirmations[1].Text))

	_, err = f.svc.Cancel(ctx, CancelRequest{Token: resent})
	require.NoError(t, err)

	stored, err := f.repo.GetByID(ctx, first.BookingID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, stored.Status)

	slots, err := f.svc.AvailableSlots(ctx, "2024-06-01")
	require.NoError(t, err)
	assert.Contains(t, slotLabels(slots), "10:00")
}

func TestBookTwiceWithoutHeldRecordLookup(t *testing.T) {
	repo := &failingRepository{Repository: openTestDB(t)}
	f := newFixture(t, repo, fixedNow, nil)
	ctx := context.Background()

	_, err := f.svc.Book(ctx, bookRequest("2024-06-01", "10:00"))
	require.NoError(t, err)

	repo.failReads = true
	res, err := f.svc.Book(ctx, bookRequest("2024-06-01", "10:00"))
	require.NoError(t, err)
	f.wait(t)

	assert.True(t, res.AlreadyBooked)
	assert.Empty(t, res.BookingID)
	assert.Len(t, f.recorder.Kind(notification.KindDemoConfirmation), 2)
}

func TestBookValidation(t *testing.T) {
	f := newFixture(t, openTestDB(t), fixedNow, nil)

	tests := []struct {
		name   string
		req    BookRequest
		fields []string
	}{
		{"empty", BookRequest{}, []string{"name", "email", "phone", "date", "time"}},
		{"bad email", func() BookRequest { r := bookRequest("2024-06-01", "10:00"); r.Contact.Email = "pat@"; return r }(), []string{"email"}},
		{"bad date", bookRequest("01/06/2024", "10:00"), []string{"date"}},
		{"off grid", bookRequest("2024-06-01", "18:00"), []string{"time"}},
		{"unparseable time", bookRequest("2024-06-01", "soon"), []string{"time"}},
		{"whitespace only", BookRequest{Contact: Contact{Name: "  ", Email: visitorEmail, Phone: "1"}, Date: "2024-06-01", Time: "10:00"}, []string{"name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Book(context.Background(), tt.req)

			var verr *apperror.ValidationError
			require.ErrorAs(t, err, &verr)
			var got []string
			for _, fe := range verr.Fields {
				got = append(got, fe.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}

	f.wait(t)
	assert.Empty(t, f.recorder.Messages())
}

func TestAvailableSlotsHidesActiveBookings(t *testing.T) {
	f := newFixture(t, openTestDB(t), fixedNow, nil)
	ctx := context.Background()

	_, err := f.svc.Book(ctx, bookRequest("2024-06-01", "10:00"))
	require.NoError(t, err)

	res, err := f.svc.AvailableSlots(ctx, "2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", res.Date)
	assert.Len(t, res.Slots, 17)
	assert.NotContains(t, slotLabels(res), "10:00")

	_, err = f.svc.AvailableSlots(ctx, "June 1st")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestAvailableSlotsTodayRespectsLeadTime(t *testing.T) {
	f := newFixture(t, openTestDB(t), fixedNow, nil)

	// fixedNow is 12:00 local, so 12:30 is the first bookable slot.
	res, err := f.svc.AvailableSlots(context.Background(), "2024-05-20")
	require.NoError(t, err)
	require.NotEmpty(t, res.Slots)
	assert.Equal(t, "12:30", res.Slots[0].Label)
	assert.Equal(t, "12:30 PM", res.Slots[0].DisplayLabel)
}

func TestAvailableSlotsSurvivesStoreFailure(t *testing.T) {
	repo := &failingRepository{Repository: openTestDB(t), failReads: true}
	f := newFixture(t, repo, fixedNow, nil)

	res, err := f.svc.AvailableSlots(context.Background(), "2024-06-01")
	require.NoError(t, err)
	assert.Len(t, res.Slots, 18)
}

func TestCancelFreesSlot(t *testing.T) {
	f := newFixture(t, openTestDB(t), fixedNow, nil)
	ctx := context.Background()

	booked, err := f.svc.Book(ctx, bookRequest("2024-06-01", "10:00"))
	require.NoError(t, err)

	res, err := f.svc.Cancel(ctx, CancelRequest{Token: booked.Token})
	require.NoError(t, err)
	assert.Equal(t, MessageCancelled, res.Message)
	f.wait(t)

	stored, err := f.repo.GetByID(ctx, booked.BookingID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, stored.Status)

	slots, err := f.svc.AvailableSlots(ctx, "2024-06-01")
	require.NoError(t, err)
	assert.Contains(t, slotLabels(slots), "10:00")

	cancelled := f.recorder.Kind(notification.KindDemoCancelled)
	require.Len(t, cancelled, 1)
	assert.Contains(t, cancelled[0].Text, "https://www.example.com/book-demo")
}

func TestCancelledThenRescheduledIsActiveAtNewSlot(t *testing.T) {
	f := newFixture(t, openTestDB(t), fixedNow, nil)
	ctx := context.Background()

	booked, err := f.svc.Book(ctx, bookRequest("2024-06-01", "10:00"))
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, CancelRequest{Token: booked.Token})
	require.NoError(t, err)

	moved, err := f.svc.Reschedule(ctx, RescheduleRequest{Token: booked.Token, Date: "2024-06-02", Time: "14:00"})
	require.NoError(t, err)
	assert.Equal(t, MessageRescheduled, moved.Message)
	assert.Equal(t, booked.BookingID, moved.BookingID)

	old, err := f.svc.AvailableSlots(ctx, "2024-06-01")
	require.NoError(t, err)
	assert.Contains(t, slotLabels(old), "10:00")

	next, err := f.svc.AvailableSlots(ctx, "2024-06-02")
	require.NoError(t, err)
	assert.NotContains(t, slotLabels(next), "14:00")

	stored, err := f.repo.GetByID(ctx, booked.BookingID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, stored.Status)
	assert.Equal(t, "2024-06-02", stored.Date)
	assert.Equal(t, "14:00", stored.Time)

	// The new manage link points at the new slot.
	tok, err := f.codec.Decode(moved.Token)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-02", tok.Date)
	assert.Equal(t, "14:00", tok.Time)
	assert.Equal(t, booked.BookingID, *tok.BookingID)

	f.wait(t)
	rescheduled := f.recorder.Kind(notification.KindDemoRescheduled)
	require.Len(t, rescheduled, 1)
	assert.Equal(t, moved.Token, tokenFromLink(t, extractLink(rescheduled[0].Text, "Cancel: ")))
}

func extractLink(text, prefix string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimPrefix(line, prefix)
		}
	}
	return ""
}

func TestRescheduleWithExplicitFields(t *testing.T) {
	f := newFixture(t, openTestDB(t), fixedNow, nil)
	ctx := context.Background()

	booked, err := f.svc.Book(ctx, bookRequest("2024-06-01", "10:00"))
	require.NoError(t, err)

	_, err = f.svc.Reschedule(ctx, RescheduleRequest{
		Email:     visitorEmail,
		Name:      "Pat",
		BookingID: booked.BookingID,
		DateTime:  "2024-06-03T11:30:00+04:00",
	})
	require.NoError(t, err)

	stored, err := f.repo.GetByID(ctx, booked.BookingID)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-03", stored.Date)
	assert.Equal(t, "11:30", stored.Time)
}

func TestRescheduleStoreFailureIsAbsorbed(t *testing.T) {
	repo := &failingRepository{Repository: openTestDB(t), failWrites: true}
	f := newFixture(t, repo, fixedNow, nil)

	id := "6f1c2a8e-7d0b-4b5e-9a43-1d2f3e4a5b6c"
	ref, err := f.codec.Encode(actiontoken.Token{Email: visitorEmail, Name: "Pat", Date: "2024-06-01", Time: "10:00", BookingID: &id})
	require.NoError(t, err)

	res, err := f.svc.Reschedule(context.Background(), RescheduleRequest{Token: ref, Date: "2024-06-02", Time: "2:00 PM"})
	require.NoError(t, err)
	assert.Equal(t, "14:00", res.Time)

	_, err = f.svc.Cancel(context.Background(), CancelRequest{Token: ref})
	require.NoError(t, err)

	f.wait(t)
	assert.Len(t, f.recorder.Messages(), 2)
}

func TestRescheduleAndCancelValidation(t *testing.T) {
	f := newFixture(t, openTestDB(t), fixedNow, nil)
	ctx := context.Background()

	var verr *apperror.ValidationError

	_, err := f.svc.Reschedule(ctx, RescheduleRequest{Email: visitorEmail})
	require.ErrorAs(t, err, &verr)

	_, err = f.svc.Reschedule(ctx, RescheduleRequest{Date: "2024-06-02", Time: "14:00"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Fields[0].Field)

	_, err = f.svc.Cancel(ctx, CancelRequest{Name: "Pat"})
	require.ErrorAs(t, err, &verr)

	// Cancelling without a persisted record still confirms to the visitor.
	res, err := f.svc.Cancel(ctx, CancelRequest{Email: visitorEmail})
	require.NoError(t, err)
	assert.Equal(t, MessageCancelled, res.Message)
}

func TestMalformedTokenIsInvalidLink(t *testing.T) {
	f := newFixture(t, openTestDB(t), fixedNow, nil)
	ctx := context.Background()

	_, err := f.svc.Reschedule(ctx, RescheduleRequest{Token: "%%%", Date: "2024-06-02", Time: "14:00"})
	assert.ErrorIs(t, err, ErrInvalidLink)

	_, err = f.svc.Cancel(ctx, CancelRequest{Token: "bm90IGpzb24"})
	assert.ErrorIs(t, err, ErrInvalidLink)

	_, err = f.svc.ResolveActionLink(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidLink)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 400, appErr.Code)
}

func TestResolveActionLink(t *testing.T) {
	f := newFixture(t, openTestDB(t), fixedNow, nil)
	ctx := context.Background()

	booked, err := f.svc.Book(ctx, bookRequest("2024-06-01", "14:30"))
	require.NoError(t, err)

	link, err := f.svc.ResolveActionLink(ctx, booked.Token)
	require.NoError(t, err)
	assert.Equal(t, visitorEmail, link.Token.Email)
	assert.Equal(t, "Saturday, June 1, 2024", link.DisplayDate)
	assert.Equal(t, "02:30 PM", link.DisplayTime)
	require.NotNil(t, link.Booking)
	assert.Equal(t, booked.BookingID, link.Booking.ID)
}

func TestResolveActionLinkWithoutStore(t *testing.T) {
	repo := &failingRepository{Repository: openTestDB(t), failReads: true}
	f := newFixture(t, repo, fixedNow, nil)

	id := "6f1c2a8e-7d0b-4b5e-9a43-1d2f3e4a5b6c"
	ref, err := f.codec.Encode(actiontoken.Token{Email: visitorEmail, Date: "2024-06-01", Time: "9:00 AM", BookingID: &id})
	require.NoError(t, err)

	link, err := f.svc.ResolveActionLink(context.Background(), ref)
	require.NoError(t, err)
	assert.Nil(t, link.Booking)
	assert.Equal(t, "09:00 AM", link.DisplayTime)
}

func TestSignedTokensRejectForgery(t *testing.T) {
	f := newFixture(t, openTestDB(t), fixedNow, actiontoken.NewSignedCodec("s3cret"))
	ctx := context.Background()

	booked, err := f.svc.Book(ctx, bookRequest("2024-06-01", "10:00"))
	require.NoError(t, err)

	_, err = f.svc.ResolveActionLink(ctx, booked.Token)
	require.NoError(t, err)

	id := booked.BookingID
	forged, err := actiontoken.NewBase64Codec().Encode(actiontoken.Token{Email: "mallory@example.org", Date: "2024-06-01", Time: "10:00", BookingID: &id})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, CancelRequest{Token: forged})
	assert.ErrorIs(t, err, ErrInvalidLink)

	stored, err := f.repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, stored.Status)
}
