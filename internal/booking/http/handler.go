package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/demo-booking-scheduler/internal/booking"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/logging"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/pkg/response"
)

// LinkConfig decides where reschedule and cancel links point.
type LinkConfig struct {
	// PublicBaseURL wins when set.
	PublicBaseURL string
	// FrontendURL is used when the request host is unusable.
	FrontendURL string
}

type Handler struct {
	service booking.Service
	links   LinkConfig
}

func NewHandler(service booking.Service, links LinkConfig) *Handler {
	links.PublicBaseURL = strings.TrimRight(links.PublicBaseURL, "/")
	links.FrontendURL = strings.TrimRight(links.FrontendURL, "/")
	return &Handler{service: service, links: links}
}

// linkBase prefers the configured public URL, then the request's own host
// unless it is a localhost address, then the frontend URL.
func (h *Handler) linkBase(c *gin.Context) string {
	if h.links.PublicBaseURL != "" {
		return h.links.PublicBaseURL
	}
	host := c.Request.Host
	if host != "" && !strings.Contains(host, "localhost") && !strings.HasPrefix(host, "127.0.0.1") {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}
		return scheme + "://" + host
	}
	return h.links.FrontendURL
}

func (h *Handler) BookDemo(c *gin.Context) {
	var body BookDemoRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	res, err := h.service.Book(c.Request.Context(), body.toService(h.linkBase(c)))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookDemoResponse(res))
}

func (h *Handler) AvailableSlots(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.BadRequest(c, "date query parameter is required", nil)
		return
	}

	res, err := h.service.AvailableSlots(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewAvailableSlotsResponse(res))
}

func (h *Handler) RescheduleDemo(c *gin.Context) {
	var body RescheduleDemoRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	res, err := h.service.Reschedule(c.Request.Context(), booking.RescheduleRequest{
		Token:     body.Token,
		Email:     body.Email,
		Name:      body.Name,
		BookingID: body.BookingID,
		Date:      body.Date,
		Time:      body.Time,
		DateTime:  body.DateTime,
		LinkBase:  h.linkBase(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, RescheduleDemoResponse{
		Success:      true,
		Message:      res.Message,
		BookingRef:   res.Token,
		BookingID:    res.BookingID,
		Date:         res.Date,
		Time:         res.Time,
		CalendarLink: res.CalendarLink,
	})
}

func (h *Handler) CancelDemo(c *gin.Context) {
	var body CancelDemoRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	res, err := h.service.Cancel(c.Request.Context(), booking.CancelRequest{
		Token:     body.Token,
		Email:     body.Email,
		Name:      body.Name,
		BookingID: body.BookingID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: res.Message})
}

func (h *Handler) ReschedulePage(c *gin.Context) {
	h.actionPage(c, pageReschedule)
}

func (h *Handler) CancelPage(c *gin.Context) {
	h.actionPage(c, pageCancel)
}

func (h *Handler) actionPage(c *gin.Context, page string) {
	link, err := h.service.ResolveActionLink(c.Request.Context(), c.Query("token"))
	if err != nil {
		if errors.Is(err, booking.ErrInvalidLink) {
			logging.FromContextOrDefault(c.Request.Context()).Info("invalid action link", "page", page, "error", err)
			c.HTML(http.StatusBadRequest, pageInvalidLink, gin.H{"Message": booking.ErrInvalidLink.Message})
			return
		}
		logging.FromContextOrDefault(c.Request.Context()).Error("action page failed", "page", page, "error", err)
		c.HTML(http.StatusInternalServerError, pageInvalidLink, gin.H{"Message": "Something went wrong, please try again later."})
		return
	}

	c.HTML(http.StatusOK, page, newActionPageData(link))
}
