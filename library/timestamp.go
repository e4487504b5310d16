package library

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Layouts accepted for backend dates, tried in order. Zone-less datetimes are
// read in local time and date-only values in UTC.
var timestampLayouts = []struct {
	layout string
	loc    *time.Location
}{
	{time.RFC3339Nano, time.UTC},
	{"2006-01-02T15:04:05", time.Local},
	{"2006-01-02 15:04:05", time.Local},
	{"2006-01-02T15:04", time.Local},
	{time.DateOnly, time.UTC},
}

// Timestamp decodes the date formats a backend may emit: RFC 3339, ISO
// datetimes without a zone, date-only values and epoch milliseconds.
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses s with the first matching layout.
func ParseTimestamp(s string) (time.Time, error) {
	for _, l := range timestampLayouts {
		if t, err := time.ParseInLocation(l.layout, s, l.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		ts.Time = time.Time{}
		return nil
	}
	if len(data) > 0 && data[0] != '"' {
		ms, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return fmt.Errorf("unrecognised date %s", data)
		}
		ts.Time = time.UnixMilli(ms).UTC()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		ts.Time = time.Time{}
		return nil
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	ts.Time = t
	return nil
}

func (u *User) UnmarshalJSON(data []byte) error {
	type fields User
	aux := struct {
		*fields
		CreatedAt Timestamp `json:"createdAt"`
	}{fields: (*fields)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	u.CreatedAt = aux.CreatedAt.Time
	return nil
}

func (r *Reservation) UnmarshalJSON(data []byte) error {
	type fields Reservation
	aux := struct {
		*fields
		ReservationDate Timestamp `json:"reservationDate"`
		DueDate         Timestamp `json:"dueDate"`
	}{fields: (*fields)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.ReservationDate = aux.ReservationDate.Time
	r.DueDate = aux.DueDate.Time
	return nil
}
