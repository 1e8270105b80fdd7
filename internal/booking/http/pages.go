package http

import (
	"html/template"

	"github.com/nekogravitycat/demo-booking-scheduler/internal/booking"
)

const (
	pageReschedule  = "reschedule.html"
	pageCancel      = "cancel.html"
	pageInvalidLink = "invalid_link.html"
)

type actionPageData struct {
	Token       string
	Name        string
	Email       string
	Date        string
	Time        string
	DisplayDate string
	DisplayTime string
	Cancelled   bool
}

func newActionPageData(link *booking.ActionLink) actionPageData {
	d := actionPageData{
		Token:       link.Raw,
		Name:        link.Token.Name,
		Email:       link.Token.Email,
		Date:        link.Token.Date,
		Time:        link.Token.Time,
		DisplayDate: link.DisplayDate,
		DisplayTime: link.DisplayTime,
	}
	if d.Name == "" {
		d.Name = "there"
	}
	if b := link.Booking; b != nil {
		d.Cancelled = !b.IsActive()
	}
	return d
}

const pageStyle = `<style>
  body { font-family: Arial, sans-serif; max-width: 640px; margin: 40px auto; padding: 20px; color: #1f2937; }
  h1 { color: #7C3AED; }
  button { padding: 12px 24px; margin: 6px; border: none; border-radius: 6px; cursor: pointer; color: #fff; background: #8B5CF6; }
  button.danger { background: #ef4444; }
  button.muted { background: #6b7280; }
  .slots { display: flex; flex-wrap: wrap; gap: 8px; margin: 16px 0; }
  .slots button.selected { background: #4C1D95; }
  .notice { background: #f5f5f5; padding: 12px; border-radius: 8px; }
  #message { margin-top: 16px; }
</style>`

const pageTemplates = `
{{define "invalid_link.html"}}<!DOCTYPE html>
<html>
<head><title>Invalid Link</title>` + pageStyle + `</head>
<body style="text-align: center;">
  <h1>Invalid Link</h1>
  <p>{{.Message}}</p>
  <p>Please use the link from your confirmation email.</p>
</body>
</html>{{end}}

{{define "cancel.html"}}<!DOCTYPE html>
<html>
<head><title>Cancel Your Demo</title>` + pageStyle + `</head>
<body style="text-align: center;">
  <h1>Cancel Your Demo</h1>
  <p>Hi {{.Name}},</p>
  {{if .Cancelled}}<p class="notice">This demo is already cancelled.</p>{{end}}
  <p>Are you sure you want to cancel your demo on <strong>{{.DisplayDate}}</strong> at <strong>{{.DisplayTime}}</strong>?</p>
  <div>
    <button class="danger" id="confirm">Yes, Cancel Demo</button>
    <button class="muted" onclick="window.close()">No, Keep My Demo</button>
  </div>
  <div id="message"></div>
  <script>
    const token = {{.Token}};
    document.getElementById('confirm').addEventListener('click', async () => {
      const box = document.getElementById('message');
      box.textContent = 'Processing...';
      try {
        const res = await fetch('/api/cancel-demo', {
          method: 'POST',
          headers: { 'Content-Type': 'application/json' },
          body: JSON.stringify({ token })
        });
        const body = await res.json();
        box.textContent = body.success
          ? 'Demo cancelled successfully. Check your email for confirmation.'
          : 'Error: ' + (body.error || body.message);
      } catch (err) {
        box.textContent = 'Error: ' + err.message;
      }
    });
  </script>
</body>
</html>{{end}}

{{define "reschedule.html"}}<!DOCTYPE html>
<html>
<head><title>Reschedule Your Demo</title>` + pageStyle + `</head>
<body>
  <h1>Reschedule Your Demo</h1>
  <p>Hi {{.Name}},</p>
  <p class="notice">Currently booked: <strong>{{.DisplayDate}}</strong> at <strong>{{.DisplayTime}}</strong>{{if .Cancelled}} (cancelled){{end}}</p>
  <label for="date">Pick a new date</label>
  <input type="date" id="date" value="{{.Date}}">
  <div class="slots" id="slots"></div>
  <button id="submit" disabled>Confirm New Time</button>
  <div id="message"></div>
  <script>
    const token = {{.Token}};
    let selected = null;

    async function loadSlots() {
      const date = document.getElementById('date').value;
      const box = document.getElementById('slots');
      selected = null;
      document.getElementById('submit').disabled = true;
      box.textContent = 'Loading...';
      if (!date) { box.textContent = ''; return; }
      try {
        const res = await fetch('/api/available-slots?date=' + encodeURIComponent(date));
        const body = await res.json();
        box.textContent = '';
        if (!body.success || body.slots.length === 0) {
          box.textContent = 'No available times on this date.';
          return;
        }
        for (const slot of body.slots) {
          const b = document.createElement('button');
          b.textContent = slot.display;
          b.addEventListener('click', () => {
            box.querySelectorAll('button').forEach(x => x.classList.remove('selected'));
            b.classList.add('selected');
            selected = slot.value;
            document.getElementById('submit').disabled = false;
          });
          box.appendChild(b);
        }
      } catch (err) {
        box.textContent = 'Error: ' + err.message;
      }
    }

    document.getElementById('date').addEventListener('change', loadSlots);
    document.getElementById('submit').addEventListener('click', async () => {
      const box = document.getElementById('message');
      box.textContent = 'Processing...';
      try {
        const res = await fetch('/api/reschedule-demo', {
          method: 'POST',
          headers: { 'Content-Type': 'application/json' },
          body: JSON.stringify({ token, date: document.getElementById('date').value, time: selected })
        });
        const body = await res.json();
        box.textContent = body.success
          ? 'Demo rescheduled successfully. Check your email for the updated invite.'
          : 'Error: ' + (body.error || body.message);
      } catch (err) {
        box.textContent = 'Error: ' + err.message;
      }
    });
    loadSlots();
  </script>
</body>
</html>{{end}}
`

// Templates returns the action pages for gin's HTML renderer.
func Templates() *template.Template {
	return template.Must(template.New("pages").Parse(pageTemplates))
}
