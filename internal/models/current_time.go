package models

import "time"

// CurrentTimeModel Current time specific model
type CurrentTimeModel struct {
	ReadableTime string `json:"readableTime"`
	Time         int64  `json:"time"`
	TimeZone     string `json:"timeZone"`
}

// CurrentTimeData Combined data structure for current time endpoint
type CurrentTimeData struct {
	Entry      CurrentTimeModel `json:"entry"`
	References ReferencesModel  `json:"references"`
}

// NewCurrentTimeData renders t in loc, the zone clock times are shown in.
func NewCurrentTimeData(t time.Time, loc *time.Location) CurrentTimeData {
	if loc == nil {
		loc = time.UTC
	}
	return CurrentTimeData{
		Entry: CurrentTimeModel{
			ReadableTime: t.In(loc).Format(time.RFC3339),
			Time:         t.UnixMilli(),
			TimeZone:     loc.String(),
		},
		References: NewEmptyReferences(),
	}
}
