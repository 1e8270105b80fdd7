package notification

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

const (
	KindDemoConfirmation     = "demo_confirmation"
	KindInternalNotification = "demo_internal_notification"
	KindDemoRescheduled      = "demo_rescheduled"
	KindDemoCancelled        = "demo_cancelled"
)

const (
	InviteFilename    = "demo-invite.ics"
	InviteContentType = "text/calendar; charset=utf-8; method=REQUEST"
)

// whenLayout renders meeting times for people, e.g. "Saturday, June 1, 2024 at 10:00 AM +04".
const whenLayout = "Monday, January 2, 2006 at 3:04 PM MST"

// ComposerConfig is the sender identity shared by every message.
type ComposerConfig struct {
	From         Address
	CompanyEmail string
	FrontendURL  string
	MeetingTitle string
}

// Composer renders the booking messages.
type Composer struct {
	cfg ComposerConfig
}

func NewComposer(cfg ComposerConfig) *Composer {
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	if cfg.MeetingTitle == "" {
		cfg.MeetingTitle = "demo"
	}
	return &Composer{cfg: cfg}
}

// Details is everything a booking message may mention.
type Details struct {
	BookingID       string
	Name            string
	Email           string
	Phone           string
	Company         string
	CompanySize     string
	AgentOfInterest string
	RequirementNote string
	Start           time.Time
	CalendarLink    string
	RescheduleURL   string
	CancelURL       string
	Invite          string
}

type view struct {
	Details
	Greeting     string
	When         string
	Title        string
	Signature    string
	CompanyEmail string
	BookAgainURL string
}

func (c *Composer) view(d Details) view {
	when := "Date TBD"
	if !d.Start.IsZero() {
		when = d.Start.Format(whenLayout)
	}
	return view{
		Details:      d,
		Greeting:     greeting(d.Name),
		When:         when,
		Title:        c.cfg.MeetingTitle,
		Signature:    c.cfg.From.Name,
		CompanyEmail: c.cfg.CompanyEmail,
		BookAgainURL: c.cfg.FrontendURL + "/book-demo",
	}
}

// DemoConfirmation is sent to the visitor after booking, with the invite attached.
func (c *Composer) DemoConfirmation(d Details) (Message, error) {
	msg, err := c.render("confirmation", c.view(d))
	if err != nil {
		return Message{}, err
	}
	msg.Kind = KindDemoConfirmation
	msg.To = []string{d.Email}
	msg.Bcc = c.bcc()
	msg.ReplyTo = c.cfg.From.Email
	msg.Subject = fmt.Sprintf("Your %s is booked!", c.cfg.MeetingTitle)
	msg.Attachments = inviteAttachment(d.Invite)
	return msg, nil
}

// InternalNotification tells the team about a new booking. Replies go to the visitor.
func (c *Composer) InternalNotification(d Details) (Message, error) {
	v := c.view(d)
	msg, err := c.render("internal", v)
	if err != nil {
		return Message{}, err
	}
	msg.Kind = KindInternalNotification
	msg.To = []string{c.cfg.CompanyEmail}
	msg.ReplyTo = d.Email
	msg.Subject = fmt.Sprintf("New Demo Booking: %s - %s", d.Name, v.When)
	return msg, nil
}

// DemoRescheduled confirms the new time with fresh manage links and invite.
func (c *Composer) DemoRescheduled(d Details) (Message, error) {
	msg, err := c.render("rescheduled", c.view(d))
	if err != nil {
		return Message{}, err
	}
	msg.Kind = KindDemoRescheduled
	msg.To = []string{d.Email}
	msg.Bcc = c.bcc()
	msg.ReplyTo = c.cfg.From.Email
	msg.Subject = fmt.Sprintf("Your %s has been rescheduled", c.cfg.MeetingTitle)
	msg.Attachments = inviteAttachment(d.Invite)
	return msg, nil
}

// DemoCancelled acknowledges a cancellation and offers a rebooking link.
func (c *Composer) DemoCancelled(d Details) (Message, error) {
	msg, err := c.render("cancelled", c.view(d))
	if err != nil {
		return Message{}, err
	}
	msg.Kind = KindDemoCancelled
	msg.To = []string{d.Email}
	msg.Bcc = c.bcc()
	msg.ReplyTo = c.cfg.From.Email
	msg.Subject = "Demo cancelled, hope to see you again"
	return msg, nil
}

func (c *Composer) render(name string, v view) (Message, error) {
	var html, text bytes.Buffer
	if err := htmlSet.ExecuteTemplate(&html, name, v); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", name, err)
	}
	if err := textSet.ExecuteTemplate(&text, name, v); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", name, err)
	}
	return Message{
		From: c.cfg.From,
		HTML: html.String(),
		Text: strings.TrimSpace(text.String()),
	}, nil
}

func (c *Composer) bcc() []string {
	if c.cfg.CompanyEmail == "" {
		return nil
	}
	return []string{c.cfg.CompanyEmail}
}

func inviteAttachment(invite string) []Attachment {
	if invite == "" {
		return nil
	}
	return []Attachment{{
		Filename:    InviteFilename,
		ContentType: InviteContentType,
		Content:     []byte(invite),
	}}
}

// greeting is the visitor's first name, or "there".
func greeting(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "there"
	}
	return fields[0]
}
