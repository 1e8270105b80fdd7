// Package calendar builds meeting artifacts: iCalendar invite documents and
// one-click "add to calendar" links.
package calendar

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// compactUTC is the YYYYMMDDTHHMMSSZ form used by both artifacts.
const compactUTC = "20060102T150405Z"

const prodID = "-//Demo Booking Scheduler//Demo Booking//EN"

// Participant is a named mailbox on an invite.
type Participant struct {
	Name  string
	Email string
}

// Event describes the meeting both artifacts are built from.
type Event struct {
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
}

// Invite is an Event with its organizer and attendee.
type Invite struct {
	Event
	Organizer Participant
	Attendee  Participant
}

// Builder produces invite documents. Its clock and entropy source are
// injectable so that output is reproducible in tests.
type Builder struct {
	now     func() time.Time
	entropy io.Reader
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the time source used for DTSTAMP and the event UID.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithEntropy overrides the random source used for the event UID.
func WithEntropy(r io.Reader) Option {
	return func(b *Builder) { b.entropy = r }
}

// NewBuilder creates a Builder backed by the wall clock and crypto/rand.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{now: time.Now, entropy: rand.Reader}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildInvite renders a CRLF-joined iCalendar REQUEST with a 15 minute reminder.
func (b *Builder) BuildInvite(inv Invite) (string, error) {
	now := b.now()
	uid, err := b.eventUID(now, inv.Organizer.Email)
	if err != nil {
		return "", err
	}

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + prodID,
		"CALSCALE:GREGORIAN",
		"METHOD:REQUEST",
		"BEGIN:VEVENT",
		"UID:" + uid,
		"DTSTAMP:" + FormatUTC(now),
		"DTSTART:" + FormatUTC(inv.Start),
		"DTEND:" + FormatUTC(inv.End),
		"SUMMARY:" + EscapeText(inv.Title),
		"DESCRIPTION:" + EscapeText(inv.Description),
		"LOCATION:" + EscapeText(inv.Location),
		fmt.Sprintf("ORGANIZER;CN=%s:MAILTO:%s", EscapeText(inv.Organizer.Name), inv.Organizer.Email),
		fmt.Sprintf("ATTENDEE;CN=%s;RSVP=TRUE:MAILTO:%s", EscapeText(inv.Attendee.Name), inv.Attendee.Email),
		"STATUS:CONFIRMED",
		"SEQUENCE:0",
		"BEGIN:VALARM",
		"TRIGGER:-PT15M",
		"ACTION:DISPLAY",
		"DESCRIPTION:Reminder: " + EscapeText(inv.Title),
		"END:VALARM",
		"END:VEVENT",
		"END:VCALENDAR",
	}
	return strings.Join(lines, "\r\n"), nil
}

// eventUID combines the creation instant with random entropy, scoped to the
// organizer's mail domain.
func (b *Builder) eventUID(now time.Time, organizerEmail string) (string, error) {
	id, err := uuid.NewRandomFromReader(b.entropy)
	if err != nil {
		return "", fmt.Errorf("generate invite uid: %w", err)
	}
	domain := "localhost"
	if at := strings.LastIndex(organizerEmail, "@"); at >= 0 && at < len(organizerEmail)-1 {
		domain = organizerEmail[at+1:]
	}
	return fmt.Sprintf("demo-%d-%s@%s", now.UnixMilli(), id.String(), domain), nil
}

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	`;`, `\;`,
	`,`, `\,`,
	"\n", `\n`,
)

// EscapeText escapes iCalendar TEXT reserved characters: backslash, semicolon,
// comma and newline. The replacer makes a single pass, so an inserted
// backslash is never escaped twice.
func EscapeText(s string) string {
	return textEscaper.Replace(strings.ReplaceAll(s, "\r\n", "\n"))
}

// FormatUTC renders t as YYYYMMDDTHHMMSSZ.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(compactUTC)
}
