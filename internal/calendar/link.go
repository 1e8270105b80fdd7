package calendar

import "net/url"

const shareableLinkBase = "https://calendar.google.com/calendar/render"

// ShareableLink builds a one-click "add to calendar" URL for the event.
func ShareableLink(e Event) string {
	params := url.Values{}
	params.Set("action", "TEMPLATE")
	params.Set("text", e.Title)
	params.Set("dates", FormatUTC(e.Start)+"/"+FormatUTC(e.End))
	params.Set("details", e.Description)
	params.Set("location", e.Location)
	return shareableLinkBase + "?" + params.Encode()
}
