package routes

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"collegeevents/middlewares"
	"collegeevents/services"
	"collegeevents/utils"
)

func (h *handlers) listEvents(c *gin.Context) {
	events, err := h.Events.List(c.Request.Context())
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, http.StatusOK, "", gin.H{"events": events})
}

func (h *handlers) getEvent(c *gin.Context) {
	event, err := h.Events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, http.StatusOK, "", gin.H{"event": event})
}

func (h *handlers) eventCalendar(c *gin.Context) {
	event, ics, err := h.Events.Calendar(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.Fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+fileSafe(event.EventName)+`.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(ics))
}

// bindEvent 同時吃 multipart（前端表單，附 eventImage）和 JSON
func bindEvent(c *gin.Context) (services.EventInput, *multipart.FileHeader, bool) {
	var in services.EventInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&in); err != nil {
			utils.Fail(c, utils.Validation("Could not parse request data."))
			return in, nil, false
		}
	}
	var image *multipart.FileHeader
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if f, err := c.FormFile("eventImage"); err == nil {
			image = f
		}
	}
	return in, image, true
}

func (h *handlers) createEvent(c *gin.Context) {
	in, image, ok := bindEvent(c)
	if !ok {
		return
	}
	event, err := h.Events.Create(c.Request.Context(), middlewares.CurrentUser(c), in, image)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, http.StatusCreated, "Event created!", gin.H{"event": event})
}

func (h *handlers) updateEvent(c *gin.Context) {
	in, image, ok := bindEvent(c)
	if !ok {
		return
	}
	event, err := h.Events.Update(c.Request.Context(), middlewares.CurrentUser(c), c.Param("id"), in, image)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, http.StatusOK, "Event updated!", gin.H{"event": event})
}

func (h *handlers) deleteEvent(c *gin.Context) {
	if err := h.Events.Delete(c.Request.Context(), middlewares.CurrentUser(c), c.Param("id")); err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, http.StatusOK, "Event deleted", nil)
}

// fileSafe keeps letters, digits, dash and underscore for download names.
func fileSafe(name string) string {
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, name)
	if out == "" {
		return "event"
	}
	return out
}
