package tools

import (
	"context"
	"time"
)

// DatetimeTool reports the current date and time in Montreal.
type DatetimeTool struct {
	now func() time.Time
	loc *time.Location
}

// NewDatetimeTool creates the datetime tool. A nil now uses time.Now.
func NewDatetimeTool(now func() time.Time) *DatetimeTool {
	if now == nil {
		now = time.Now
	}
	return &DatetimeTool{now: now, loc: montreal()}
}

func (t *DatetimeTool) Definition() Definition {
	return Definition{
		Name:        "get_current_datetime",
		Description: "Get the current date and time in Montreal's timezone (America/Montreal). Use this to calculate future times when user says 'tomorrow', 'next week', 'in 2 hours', etc.",
		Parameters:  ObjectSchema(nil),
	}
}

type datetimeResult struct {
	Success   bool   `json:"success"`
	Datetime  string `json:"datetime"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	DayOfWeek string `json:"day_of_week"`
	Timezone  string `json:"timezone"`
	Readable  string `json:"readable"`
}

func (t *DatetimeTool) Call(ctx context.Context, args Args) (any, error) {
	now := t.now().In(t.loc)
	return datetimeResult{
		Success:   true,
		Datetime:  now.Format("2006-01-02T15:04:05.000000-07:00"),
		Date:      now.Format("2006-01-02"),
		Time:      now.Format("15:04:05"),
		DayOfWeek: now.Format("Monday"),
		Timezone:  Timezone,
		Readable:  now.Format("Monday, January 02, 2006 at 03:04 PM"),
	}, nil
}
