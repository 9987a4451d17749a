package apex

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// Apex firmware is inconsistent about JSON types across versions:
// numeric fields arrive bare or quoted, dates arrive as 6-digit YYMMDD
// strings, and record timestamps as Unix epoch seconds. The coercion
// types below absorb those variants so the rest of the package works
// with plain Go values.

// Number is a float64 accepting bare or quoted JSON numbers.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = unquote(data)
	if len(data) == 0 || string(data) == "null" {
		*n = 0
		return nil
	}
	parsed, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("number %q: %w", data, ErrSchema)
	}
	*n = Number(parsed)
	return nil
}

// Flag is a bool accepting JSON bools, numbers, and strings.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	switch string(unquote(data)) {
	case "true", "1":
		*f = true
	case "false", "0", "", "null":
		*f = false
	default:
		return fmt.Errorf("flag %q: %w", data, ErrSchema)
	}
	return nil
}

// DayDate is a calendar day in the vendor's 6-digit YYMMDD encoding.
type DayDate struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *DayDate) UnmarshalJSON(data []byte) error {
	raw := string(unquote(data))
	parsed, err := ParseDayCode(raw)
	if err != nil {
		return err
	}
	d.Time = parsed
	return nil
}

// ParseDayCode decodes a YYMMDD day string.
func ParseDayCode(raw string) (time.Time, error) {
	if len(raw) != 6 {
		return time.Time{}, fmt.Errorf("day code %q: %w", raw, ErrSchema)
	}
	year, err1 := strconv.Atoi(raw[0:2])
	month, err2 := strconv.Atoi(raw[2:4])
	day, err3 := strconv.Atoi(raw[4:6])
	if err1 != nil || err2 != nil || err3 != nil || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("day code %q: %w", raw, ErrSchema)
	}
	return time.Date(2000+year, time.Month(month), day, 0, 0, 0, 0, time.Local), nil
}

// DayCode encodes the day daysAgo days before now as YYMMDD.
func DayCode(daysAgo int) string {
	day := time.Now().Add(-time.Duration(daysAgo) * 24 * time.Hour)
	return fmt.Sprintf("%02d%02d%02d", day.Year()%100, int(day.Month()), day.Day())
}

// Timestamp is a point in time encoded as Unix epoch seconds.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := string(unquote(data))
	if raw == "" || raw == "null" {
		t.Time = time.Time{}
		return nil
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", data, ErrSchema)
	}
	t.Time = time.Unix(seconds, 0)
	return nil
}

func unquote(data []byte) []byte {
	data = bytes.TrimSpace(data)
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		return data[1 : len(data)-1]
	}
	return data
}

// loginResponse is the body returned by POST /rest/login.
type loginResponse struct {
	ConnectSID string `json:"connect.sid"`
}

// sdStat mirrors the SD-card health block shared by all log envelopes.
type sdStat struct {
	Reads    Number `json:"reads"`
	Writes   Number `json:"writes"`
	ReadErr  Number `json:"readErr"`
	WriteErr Number `json:"writeErr"`
}

// logExtra mirrors the firmware metadata block shared by all envelopes.
type logExtra struct {
	SDVer     string  `json:"sdver"`
	SDDate    DayDate `json:"sddate"`
	SDSerial  Number  `json:"sdserial"`
	SDExtDate DayDate `json:"sdextDate"`
	SDHealth  Number  `json:"sdhealth"`
	WWWVer    string  `json:"WWWVer"`
	TmpUart   string  `json:"TmpUart"`
	SDStat    sdStat  `json:"sdstat"`
}

// InstantLogEntry is one data point inside an instant-log record.
type InstantLogEntry struct {
	Name  string `json:"name"`
	DID   string `json:"did"`
	Type  string `json:"type"`
	Value Number `json:"value"`
}

// InstantLogRecord is one event-driven record from /rest/ilog.
type InstantLogRecord struct {
	Date Timestamp         `json:"date"`
	Data []InstantLogEntry `json:"data"`
}

// InstantLog is the decoded instant-log envelope.
type InstantLog struct {
	Hostname string             `json:"hostname"`
	Software string             `json:"software"`
	Hardware string             `json:"hardware"`
	Serial   string             `json:"serial"`
	Type     string             `json:"type"`
	Extra    logExtra           `json:"extra"`
	Timezone string             `json:"timezone"`
	Record   []InstantLogRecord `json:"record"`
}

type instantLogResponse struct {
	ILog *InstantLog `json:"ilog"`
}

// TrendLogRecord is one sampled record from /rest/tlog.
type TrendLogRecord struct {
	Date       Timestamp `json:"date"`
	DID        string    `json:"did"`
	Value      Number    `json:"value"`
	Confidence Number    `json:"confidence"`
}

// TrendLog is the decoded trend-log envelope.
type TrendLog struct {
	Hostname string           `json:"hostname"`
	Software string           `json:"software"`
	Hardware string           `json:"hardware"`
	Serial   string           `json:"serial"`
	Type     string           `json:"type"`
	Extra    logExtra         `json:"extra"`
	Timezone string           `json:"timezone"`
	Record   []TrendLogRecord `json:"record"`
}

type trendLogResponse struct {
	TLog *TrendLog `json:"tlog"`
}

// StatusInput is one probe input from /rest/status.
type StatusInput struct {
	DID   string `json:"did"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value Number `json:"value"`
}

// StatusOutput is one controlled output from /rest/status.
type StatusOutput struct {
	Status []string `json:"status"`
	Name   string   `json:"name"`
	GID    string   `json:"gid"`
	Type   string   `json:"type"`
	ID     Number   `json:"ID"`
	DID    string   `json:"did"`
}

// StatusModule is one bus module from /rest/status.
type StatusModule struct {
	ABAddr  Number `json:"abaddr"`
	HWType  string `json:"hwtype"`
	HWRev   Number `json:"hwrev"`
	SWRev   Number `json:"swrev"`
	SWStat  string `json:"swstat"`
	PCount  Number `json:"pcount"`
	PError  Number `json:"perror"`
	ReAtt   Number `json:"reatt"`
	Inact   Number `json:"inact"`
	Boot    Flag   `json:"boot"`
	Present Flag   `json:"present"`
}

// StatusSystem is the controller identity block from /rest/status.
type StatusSystem struct {
	Hostname string    `json:"hostname"`
	Software string    `json:"software"`
	Hardware string    `json:"hardware"`
	Serial   string    `json:"serial"`
	Type     string    `json:"type"`
	Extra    logExtra  `json:"extra"`
	Timezone string    `json:"timezone"`
	Date     Timestamp `json:"date"`
}

// Status is the decoded live snapshot from /rest/status.
type Status struct {
	System  *StatusSystem  `json:"system"`
	Modules []StatusModule `json:"modules"`
	Feed    struct {
		Name   Number `json:"name"`
		Active Number `json:"active"`
	} `json:"feed"`
	Power struct {
		Failed   Timestamp `json:"failed"`
		Restored Timestamp `json:"restored"`
	} `json:"power"`
	Outputs []StatusOutput `json:"outputs"`
	Inputs  []StatusInput  `json:"inputs"`
}
