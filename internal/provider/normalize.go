package provider

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"carpark-status-backend/internal/model"
)

// The provider has shipped several response shapes over the years: a bare
// array, {"rows": [...]}, {"list": [...]}, and {"data": <any of those>}.
// The rules below are tried in order and produce one uniform record slice;
// nothing past this file knows which shape arrived.

// NormalizeMovements parses a search response body into movement events.
// Timestamps are interpreted in loc, the provider's wall-clock timezone.
// Records missing a plate number or timestamp are dropped silently, as are
// records whose direction cannot be decoded.
func NormalizeMovements(body []byte, loc *time.Location) ([]model.MovementEvent, error) {
	records, err := extractRecords(body)
	if err != nil {
		return nil, err
	}

	events := make([]model.MovementEvent, 0, len(records))
	for _, rec := range records {
		if ev, ok := normalizeRecord(rec, loc); ok {
			events = append(events, ev)
		}
	}
	return events, nil
}

// extractRecords applies the shape-detection rules.
func extractRecords(body []byte) ([]map[string]any, error) {
	var bare []map[string]any
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("response is neither an array nor an object: %w", err)
	}

	for _, key := range []string{"rows", "list"} {
		if raw, ok := wrapper[key]; ok {
			var records []map[string]any
			if err := json.Unmarshal(raw, &records); err != nil {
				return nil, fmt.Errorf("field %q is not a record array: %w", key, err)
			}
			return records, nil
		}
	}

	// {"data": ...} wraps any of the other shapes one level down.
	if raw, ok := wrapper["data"]; ok {
		return extractRecords(raw)
	}

	return nil, fmt.Errorf("no recognized record container in response")
}

func normalizeRecord(rec map[string]any, loc *time.Location) (model.MovementEvent, bool) {
	plate := firstString(rec, "carNo", "plateNo", "plateNumber")
	ts := firstString(rec, "passTime", "eventTime", "occurredAt")
	if plate == "" || ts == "" {
		return model.MovementEvent{}, false
	}

	occurredAt, err := parseProviderTime(ts, loc)
	if err != nil {
		log.Printf("provider: dropping record for %s: %v", plate, err)
		return model.MovementEvent{}, false
	}

	direction, ok := decodeDirection(firstString(rec, "inOutGbn", "inOutType", "direction"))
	if !ok {
		log.Printf("provider: dropping record for %s: undecodable direction", plate)
		return model.MovementEvent{}, false
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		raw = []byte("{}")
	}

	return model.MovementEvent{
		PlateNumber: strings.TrimSpace(plate),
		EventType:   direction,
		OccurredAt:  occurredAt,
		Location:    firstString(rec, "equipmentName", "deviceName", "gateName"),
		CardType:    firstString(rec, "cardKindName", "cardType"),
		RawPayload:  string(raw),
	}, true
}

// decodeDirection maps the provider's direction code: "0" is an entry, "1"
// an exit. Non-numeric codes fall back to keyword matching.
func decodeDirection(code string) (model.MovementType, bool) {
	switch strings.TrimSpace(code) {
	case "0":
		return model.MovementEntry, true
	case "1":
		return model.MovementExit, true
	}

	lowered := strings.ToLower(code)
	switch {
	case strings.Contains(lowered, "out"), strings.Contains(lowered, "exit"):
		return model.MovementExit, true
	case strings.Contains(lowered, "in"), strings.Contains(lowered, "entry"), strings.Contains(lowered, "enter"):
		return model.MovementEntry, true
	}
	return "", false
}

// parseProviderTime parses the provider's timestamp, truncating fractional
// seconds ("2006-01-02 15:04:05.123" and "15:04:05" forms both occur).
func parseProviderTime(ts string, loc *time.Location) (time.Time, error) {
	ts = strings.TrimSpace(ts)
	if i := strings.IndexByte(ts, '.'); i >= 0 {
		ts = ts[:i]
	}
	parsed, err := time.ParseInLocation("2006-01-02 15:04:05", ts, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable timestamp %q: %w", ts, err)
	}
	return parsed, nil
}

func firstString(rec map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := rec[key]; ok {
			switch s := v.(type) {
			case string:
				if s != "" {
					return s
				}
			case float64:
				return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", s), "0"), ".")
			}
		}
	}
	return ""
}
