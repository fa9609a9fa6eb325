package departures

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"walktimes.dev/internal/mbta"
)

func TestDescribe(t *testing.T) {
	boston, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	now := at(t, "09:50")

	withStatus := departuresAt("10:15")[0]
	withStatus.Attributes.Status = strPtr("Boarding")

	arrivalOnly := mbta.Prediction{ID: "arrival-only"}
	arrivalOnly.Attributes.ArrivalTime = strPtr("2024-05-01T10:05:00-04:00")

	testCases := []struct {
		name          string
		pred          mbta.Prediction
		walk          *float64
		wantText      string
		wantStatus    bool
		wantLeave     string
		wantReachable bool
	}{
		{
			name:          "departure with walk",
			pred:          departuresAt("10:15")[0],
			walk:          floatPtr(600),
			wantText:      "10:15",
			wantLeave:     "10:05",
			wantReachable: true,
		},
		{
			name:          "status overrides time",
			pred:          withStatus,
			walk:          floatPtr(600),
			wantText:      "Boarding",
			wantStatus:    true,
			wantLeave:     "10:05",
			wantReachable: true,
		},
		{
			name:     "arrival only has no leave time",
			pred:     arrivalOnly,
			walk:     floatPtr(600),
			wantText: "10:05",
		},
		{
			name:          "no walk estimate",
			pred:          departuresAt("10:15")[0],
			wantText:      "10:15",
			wantReachable: true,
		},
		{
			name:      "unreachable",
			pred:      departuresAt("10:00")[0],
			walk:      floatPtr(20 * 60),
			wantText:  "10:00",
			wantLeave: "09:40",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := Describe(tc.pred, tc.walk, now, boston)
			assert.Equal(t, tc.wantText, d.PrimaryText)
			assert.Equal(t, tc.wantStatus, d.FromStatus)
			assert.Equal(t, tc.wantReachable, d.Reachable)
			if tc.wantLeave == "" {
				assert.Nil(t, d.LeaveAt)
			} else {
				require.NotNil(t, d.LeaveAt)
				assert.Equal(t, tc.wantLeave, d.LeaveAt.In(boston).Format(ClockLayout))
			}
		})
	}
}
