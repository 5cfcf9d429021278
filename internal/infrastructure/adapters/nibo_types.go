package adapters

import (
	"time"

	"github.com/shopspring/decimal"
)

// niboListResponse is the envelope of the Nibo schedules listing
type niboListResponse struct {
	Items []niboSchedule `json:"items"`
	Count int            `json:"count"`
}

// niboSchedule is one receivable schedule as Nibo reports it
type niboSchedule struct {
	ScheduleID  string          `json:"scheduleId"`
	Stakeholder niboStakeholder `json:"stakeholder"`
	Value       decimal.Decimal `json:"value"`
	DueDate     string          `json:"dueDate"`
	IsPaid      bool            `json:"isPaid"`
	PaidDate    string          `json:"paidDate"`
	Categories  []niboCategory  `json:"categories"`
}

type niboStakeholder struct {
	Name    string `json:"name"`
	CPFCNPJ string `json:"cpfCnpj"`
}

type niboCategory struct {
	Description string `json:"description"`
}

// categoryName returns the first category description, if any
func (s niboSchedule) categoryName() string {
	if len(s.Categories) > 0 {
		return s.Categories[0].Description
	}
	return ""
}

// niboDateLayouts covers the date shapes seen in Nibo payloads
var niboDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
}

func parseNiboDate(raw string) (time.Time, bool) {
	for _, layout := range niboDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
