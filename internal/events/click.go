package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// ClickEvent is one accepted, non-bot redirect. Aggregation only reads
// LinkID, Timestamp and Count; the rest is enrichment for raw sinks.
type ClickEvent struct {
	EventID   string    `json:"eventId,omitempty"`
	LinkID    string    `json:"linkId"`
	Timestamp time.Time `json:"timestamp"`
	Count     int64     `json:"count"`

	Domain    string `json:"domain,omitempty"`
	Key       string `json:"key,omitempty"`
	Country   string `json:"country,omitempty"`
	Device    string `json:"device,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	Referer   string `json:"referer,omitempty"`
	QR        bool   `json:"qr,omitempty"`

	// ClientIP feeds the dedupe window and is never serialized.
	ClientIP string `json:"-"`
}

func Encode(e ClickEvent) ([]byte, error) {
	if e.Count == 0 {
		e.Count = 1
	}
	return json.Marshal(e)
}

// Decode parses one log entry. Entries without a link id are rejected; a
// missing count is read as a single click.
func Decode(raw []byte) (ClickEvent, error) {
	var e ClickEvent
	if err := json.Unmarshal(raw, &e); err != nil {
		return ClickEvent{}, fmt.Errorf("decode click event: %w", err)
	}
	if e.LinkID == "" {
		return ClickEvent{}, fmt.Errorf("decode click event: missing linkId")
	}
	if e.Count <= 0 {
		e.Count = 1
	}
	return e, nil
}
