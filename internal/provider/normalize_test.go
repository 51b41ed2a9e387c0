package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carpark-status-backend/internal/model"
)

func TestNormalizeMovements_Shapes(t *testing.T) {
	record := `{"carNo":"12A3456","inOutGbn":"0","passTime":"2024-01-01 09:00:00","equipmentName":"Gate A","cardKindName":"visitor"}`

	testCases := []struct {
		name string
		body string
	}{
		{"bare array", `[` + record + `]`},
		{"rows wrapper", `{"rows":[` + record + `]}`},
		{"list wrapper", `{"list":[` + record + `]}`},
		{"data wrapping an array", `{"data":[` + record + `]}`},
		{"data wrapping rows", `{"data":{"rows":[` + record + `]}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			events, err := NormalizeMovements([]byte(tc.body), time.UTC)
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, "12A3456", events[0].PlateNumber)
			assert.Equal(t, model.MovementEntry, events[0].EventType)
			assert.Equal(t, "Gate A", events[0].Location)
			assert.Equal(t, "visitor", events[0].CardType)
			assert.True(t, events[0].OccurredAt.Equal(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)))
		})
	}
}

func TestNormalizeMovements_UnrecognizedShape(t *testing.T) {
	_, err := NormalizeMovements([]byte(`{"items":[]}`), time.UTC)
	assert.Error(t, err)

	_, err = NormalizeMovements([]byte(`"just a string"`), time.UTC)
	assert.Error(t, err)
}

func TestNormalizeMovements_DropsIncompleteRecords(t *testing.T) {
	body := `[
		{"carNo":"KEEP001","inOutGbn":"1","passTime":"2024-01-01 10:00:00"},
		{"inOutGbn":"0","passTime":"2024-01-01 10:00:00"},
		{"carNo":"NOTIME1","inOutGbn":"0"},
		{"carNo":"BADTIME","inOutGbn":"0","passTime":"yesterday"},
		{"carNo":"NODIR01","inOutGbn":"9","passTime":"2024-01-01 10:00:00"}
	]`

	events, err := NormalizeMovements([]byte(body), time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "KEEP001", events[0].PlateNumber)
	assert.Equal(t, model.MovementExit, events[0].EventType)
}

func TestNormalizeMovements_FractionalSecondsTruncated(t *testing.T) {
	body := `[{"carNo":"12A3456","inOutGbn":"0","passTime":"2024-01-01 09:00:01.987"}]`
	events, err := NormalizeMovements([]byte(body), time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].OccurredAt.Equal(time.Date(2024, 1, 1, 9, 0, 1, 0, time.UTC)))
}

func TestNormalizeMovements_AlternateFieldNames(t *testing.T) {
	body := `[{"plateNo":"34B7890","direction":"OUT","eventTime":"2024-01-01 18:30:00","gateName":"Back Gate"}]`
	events, err := NormalizeMovements([]byte(body), time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "34B7890", events[0].PlateNumber)
	assert.Equal(t, model.MovementExit, events[0].EventType)
	assert.Equal(t, "Back Gate", events[0].Location)
}

func TestNormalizeMovements_RawPayloadPreserved(t *testing.T) {
	body := `[{"carNo":"12A3456","inOutGbn":"0","passTime":"2024-01-01 09:00:00","extraVendorField":42}]`
	events, err := NormalizeMovements([]byte(body), time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].RawPayload, "extraVendorField")
}

func TestDecodeDirection(t *testing.T) {
	testCases := []struct {
		code     string
		expected model.MovementType
		ok       bool
	}{
		{"0", model.MovementEntry, true},
		{"1", model.MovementExit, true},
		{" 0 ", model.MovementEntry, true},
		{"IN", model.MovementEntry, true},
		{"ENTRY", model.MovementEntry, true},
		{"OUT", model.MovementExit, true},
		{"Exit", model.MovementExit, true},
		{"2", "", false},
		{"", "", false},
	}
	for _, tc := range testCases {
		got, ok := decodeDirection(tc.code)
		assert.Equal(t, tc.ok, ok, "code %q", tc.code)
		if tc.ok {
			assert.Equal(t, tc.expected, got, "code %q", tc.code)
		}
	}
}

func TestNormalizeMovements_NumericDirectionCode(t *testing.T) {
	// Some payload generations send the direction code as a JSON number.
	body := `[{"carNo":"12A3456","inOutGbn":1,"passTime":"2024-01-01 09:00:00"}]`
	events, err := NormalizeMovements([]byte(body), time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.MovementExit, events[0].EventType)
}
