// Package exports renders event data into downloadable formats:
// iCalendar invites, registrant spreadsheets and QR tickets.
package exports

import (
	"bytes"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/skip2/go-qrcode"
	"github.com/xuri/excelize/v2"

	"collegeevents/models"
)

// 活動沒有結束時間，行事曆預設 2 小時
const defaultEventLength = 2 * time.Hour

func EventCalendar(e models.Event, organizer string) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//BMSCE Events//Portal//EN")

	ve := cal.AddEvent(e.ID + "@bmsce-events")
	ve.SetDtStampTime(time.Now().UTC())
	ve.SetCreatedTime(e.CreatedAt)
	ve.SetModifiedAt(e.UpdatedAt)
	ve.SetStartAt(e.EventDate)
	ve.SetEndAt(e.EventDate.Add(defaultEventLength))
	ve.SetSummary(e.EventName)
	ve.SetDescription(e.Description)
	ve.SetLocation(e.Venue)
	if organizer != "" {
		ve.SetOrganizer(organizer)
	}
	return cal.Serialize()
}

const registrantsSheet = "Registrations"

var registrantHeaders = []string{"Name", "Email", "USN", "Status", "Amount Paid", "Registered At"}

func RegistrantsWorkbook(eventName string, regs []models.EventRegistration) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", registrantsSheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{Title: eventName, Creator: "BMSCE Events"}); err != nil {
		return nil, fmt.Errorf("set doc props: %w", err)
	}

	for i, h := range registrantHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(registrantsSheet, cell, h); err != nil {
			return nil, fmt.Errorf("set header cell: %w", err)
		}
	}

	for r, reg := range regs {
		var name, email, usn string
		if reg.User != nil {
			name, email, usn = reg.User.FullName, reg.User.Email, reg.User.USN
		}
		row := []any{
			name,
			email,
			usn,
			string(reg.PaymentStatus),
			reg.AmountPaid,
			reg.CreatedAt.Format("2006-01-02 15:04"),
		}
		for i, v := range row {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			if err := f.SetCellValue(registrantsSheet, cell, v); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return &buf, nil
}

// TicketQR encodes the registration id; door staff scan it and look it up.
func TicketQR(registrationID string) ([]byte, error) {
	return qrcode.Encode("registration:"+registrationID, qrcode.Medium, 256)
}
