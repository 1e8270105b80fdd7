package notification

import (
	htmltemplate "html/template"
	texttemplate "text/template"
)

const htmlTemplates = `
{{define "confirmation"}}<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <p>Hi {{.Greeting}},</p>
  <p>Your {{.Title}} is confirmed for <strong>{{.When}}</strong>.</p>
  <p>You'll find the meeting details in the attached calendar invite. You can also <a href="{{.CalendarLink}}">add it to your calendar</a>.</p>
  <p>You can reschedule or cancel anytime if needed.</p>
  <div style="margin: 30px 0; text-align: center;">
    <a href="{{.RescheduleURL}}" style="display: inline-block; background-color: #8B5CF6; color: #ffffff; padding: 14px 28px; text-decoration: none; border-radius: 8px; margin: 0 10px; font-weight: 600;">Reschedule</a>
    <a href="{{.CancelURL}}" style="display: inline-block; background-color: #ef4444; color: #ffffff; padding: 14px 28px; text-decoration: none; border-radius: 8px; margin: 0 10px; font-weight: 600;">Cancel</a>
  </div>
  <p>Looking forward to speaking with you!</p>
  <p><strong>{{.Signature}}</strong></p>
</div>{{end}}

{{define "internal"}}<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">New Demo Booking</h2>
  <div style="background: #f5f5f5; padding: 15px; border-radius: 8px; margin: 20px 0;">
    <p><strong>Name:</strong> {{.Name}}</p>
    <p><strong>Email:</strong> {{.Email}}</p>
    <p><strong>Phone:</strong> {{or .Phone "N/A"}}</p>
    <p><strong>Company:</strong> {{or .Company "N/A"}}</p>
    <p><strong>Company Size:</strong> {{or .CompanySize "N/A"}}</p>
    <p><strong>Date &amp; Time:</strong> {{.When}}</p>
    <p><strong>Calendar:</strong> <a href="{{.CalendarLink}}">Add to calendar</a></p>
    <p><strong>Agent of Interest:</strong> {{or .AgentOfInterest "General"}}</p>
    {{if .RequirementNote}}<p><strong>User Requirements:</strong> {{.RequirementNote}}</p>{{end}}
    {{if .BookingID}}<p><strong>Booking ID:</strong> {{.BookingID}}</p>{{else}}<p><strong>Booking ID:</strong> not persisted</p>{{end}}
  </div>
</div>{{end}}

{{define "rescheduled"}}<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <p>Hi {{.Greeting}},</p>
  <p>Your demo has been successfully rescheduled.</p>
  <div style="background: #f5f5f5; padding: 15px; border-radius: 8px; margin: 20px 0;">
    <p><strong>New Date &amp; Time:</strong> {{.When}}</p>
    <p><strong>Calendar:</strong> <a href="{{.CalendarLink}}">Add to calendar</a></p>
  </div>
  <p>Need another change? <a href="{{.RescheduleURL}}">Reschedule</a> or <a href="{{.CancelURL}}">cancel</a>.</p>
  <p>Looking forward to it.</p>
  <p>{{.Signature}}</p>
</div>{{end}}

{{define "cancelled"}}<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <p>Hi {{.Greeting}},</p>
  <p>Your demo has been cancelled, no worries at all.</p>
  <p>If you ever want to reconnect, feel free to reach us at {{.CompanyEmail}} or simply <a href="{{.BookAgainURL}}">book again</a> when the time feels right.</p>
  <p>Wishing you the best,</p>
  <p><strong>{{.Signature}}</strong></p>
</div>{{end}}
`

const textTemplates = `
{{define "confirmation"}}Hi {{.Greeting}},

Your {{.Title}} is confirmed for {{.When}}.

You'll find the meeting details in the attached calendar invite.
Add to calendar: {{.CalendarLink}}

You can reschedule or cancel anytime if needed.

Reschedule your demo: {{.RescheduleURL}}
Cancel your demo: {{.CancelURL}}

Looking forward to speaking with you!

{{.Signature}}{{end}}

{{define "internal"}}New Demo Booking

Name: {{.Name}}
Email: {{.Email}}
Phone: {{or .Phone "N/A"}}
Company: {{or .Company "N/A"}}
Company Size: {{or .CompanySize "N/A"}}
Date & Time: {{.When}}
Calendar: {{.CalendarLink}}
Agent of Interest: {{or .AgentOfInterest "General"}}
{{- if .RequirementNote}}
User Requirements: {{.RequirementNote}}{{end}}
Booking ID: {{or .BookingID "not persisted"}}{{end}}

{{define "rescheduled"}}Hi {{.Greeting}},

Your demo has been successfully rescheduled.

New Date & Time: {{.When}}
Add to calendar: {{.CalendarLink}}

Reschedule again: {{.RescheduleURL}}
Cancel: {{.CancelURL}}

Looking forward to it.

{{.Signature}}{{end}}

{{define "cancelled"}}Hi {{.Greeting}},

Your demo has been cancelled, no worries at all.

If you ever want to reconnect, feel free to reach us at {{.CompanyEmail}} or simply book again when the time feels right: {{.BookAgainURL}}

Wishing you the best,

{{.Signature}}{{end}}
`

var (
	htmlSet = htmltemplate.Must(htmltemplate.New("mail").Parse(htmlTemplates))
	textSet = texttemplate.Must(texttemplate.New("mail").Parse(textTemplates))
)
