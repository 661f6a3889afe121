package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collegeevents/middlewares"
	"collegeevents/services"
	"collegeevents/utils"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type eventRef struct {
	EventID string `json:"eventId"`
}

func (h *handlers) registerFree(c *gin.Context) {
	var in eventRef
	if !bindJSON(c, &in) {
		return
	}
	reg, err := h.Registrations.RegisterFree(c.Request.Context(), middlewares.CurrentUser(c), in.EventID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, http.StatusCreated, "Successfully registered for the event!", gin.H{"registration": reg})
}

func (h *handlers) createOrder(c *gin.Context) {
	var in eventRef
	if !bindJSON(c, &in) {
		return
	}
	res, err := h.Registrations.CreateOrder(c.Request.Context(), middlewares.CurrentUser(c), in.EventID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, http.StatusOK, "", gin.H{
		"order": gin.H{
			"id":       res.Order.ID,
			"amount":   res.Order.Amount,
			"currency": res.Order.Currency,
		},
		"event": gin.H{"name": res.EventName, "clubName": res.ClubName},
		"key":   res.Key,
	})
}

func (h *handlers) verifyPayment(c *gin.Context) {
	var in services.VerifyInput
	if !bindJSON(c, &in) {
		return
	}
	reg, err := h.Registrations.VerifyPayment(c.Request.Context(), middlewares.CurrentUser(c), in)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, http.StatusOK, "Payment verified! You are registered for the event.", gin.H{"registration": reg})
}

func (h *handlers) myRegistrations(c *gin.Context) {
	regs, err := h.Registrations.MyRegistrations(c.Request.Context(), middlewares.CurrentUser(c).ID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, http.StatusOK, "", gin.H{"registrations": regs})
}

func (h *handlers) ticket(c *gin.Context) {
	png, err := h.Registrations.Ticket(c.Request.Context(), middlewares.CurrentUser(c), c.Param("id"))
	if err != nil {
		utils.Fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *handlers) eventRegistrations(c *gin.Context) {
	roster, err := h.Registrations.EventRegistrations(c.Request.Context(), middlewares.CurrentUser(c), c.Param("eventId"))
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, http.StatusOK, "", gin.H{
		"eventName":          roster.EventName,
		"totalRegistrations": len(roster.Registrations),
		"registrations":      roster.Registrations,
	})
}

func (h *handlers) exportRegistrations(c *gin.Context) {
	name, buf, err := h.Registrations.ExportRegistrations(c.Request.Context(), middlewares.CurrentUser(c), c.Param("eventId"))
	if err != nil {
		utils.Fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+fileSafe(name)+`_registrations.xlsx"`)
	c.Data(http.StatusOK, xlsxMIME, buf.Bytes())
}
