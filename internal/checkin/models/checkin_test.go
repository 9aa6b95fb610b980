package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eventmodels "eventdesk/internal/event/models"
	regmodels "eventdesk/internal/registration/models"
	id "eventdesk/pkg/domain"
	dErrors "eventdesk/pkg/domain-errors"
)

func TestMethodLabels(t *testing.T) {
	tests := []struct {
		method Method
		label  string
	}{
		{MethodQR, "QR Code"},
		{MethodManual, "Manual"},
		{MethodID, "ID Verification"},
		{methodUnset, "Unknown"},
		{Method(42), "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.label, tt.method.Label())
		})
	}
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("manual")
	require.NoError(t, err)
	assert.Equal(t, MethodManual, m)
	assert.True(t, m.Valid())

	_, err = ParseMethod("MANUAL")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	assert.False(t, methodUnset.Valid())
	assert.Equal(t, "unknown", methodUnset.String())
}

func TestCheckInJSON(t *testing.T) {
	by := id.UserID(uuid.New())
	c := &CheckIn{
		ID:             id.NewCheckInID(),
		RegistrationID: id.NewRegistrationID(),
		CheckedInAt:    time.Date(2026, 11, 20, 17, 0, 0, 0, time.UTC),
		CheckedInBy:    &by,
		Method:         MethodID,
	}
	raw, err := json.Marshal(c)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "id", fields["check_in_method"])
	assert.Equal(t, "ID Verification", fields["check_in_method_label"])
	assert.Equal(t, by.String(), fields["checked_in_by"])

	c.CheckedInBy = nil
	raw, err = json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"checked_in_by":null`)
}

func TestFilterMatches(t *testing.T) {
	at := time.Date(2026, 11, 20, 17, 0, 0, 0, time.UTC)
	c := &CheckIn{CheckedInAt: at, Method: MethodQR}

	qr, manual := MethodQR, MethodManual
	before, after := at.Add(-time.Minute), at.Add(time.Minute)

	assert.True(t, Filter{}.Matches(c))
	assert.True(t, Filter{Method: &qr, Since: &before, Until: &after}.Matches(c))
	assert.False(t, Filter{Method: &manual}.Matches(c))
	assert.False(t, Filter{Since: &after}.Matches(c))
	assert.False(t, Filter{Until: &before}.Matches(c))
}

func TestSuccessShape(t *testing.T) {
	reg := &regmodels.Registration{
		ID:          id.NewRegistrationID(),
		Code:        "K7Q2ZP9A",
		HolderName:  "Ada Lovelace",
		HolderEmail: "ada@example.com",
	}
	e := &eventmodels.Event{Title: "Go Meetup", StartDate: time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC)}
	c := &CheckIn{CheckedInAt: time.Date(2026, 11, 20, 17, 5, 0, 0, time.UTC), Method: MethodQR}

	res := NewSuccess(reg, e, c)
	require.True(t, res.OK())
	assert.Equal(t, Success{
		ID:                 reg.ID.String(),
		Code:               "K7Q2ZP9A",
		HolderName:         "Ada Lovelace",
		HolderEmail:        "ada@example.com",
		EventTitle:         "Go Meetup",
		EventDate:          "Nov 20, 2026",
		CheckedInAt:        "Nov 20, 2026 5:05 PM",
		CheckInMethodLabel: "QR Code",
	}, *res.Success)
	assert.Equal(t, Reason(""), res.Reason())
}

func TestFailureShape(t *testing.T) {
	t.Run("already checked in carries the original time", func(t *testing.T) {
		res := AlreadyCheckedIn("K7Q2ZP9A", time.Date(2026, 11, 20, 9, 30, 0, 0, time.UTC))
		require.False(t, res.OK())

		raw, err := json.Marshal(res.Failure)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"code": "K7Q2ZP9A",
			"reason_code": "already_checked_in",
			"human_message": "This attendee has already been checked in.",
			"existing_check_in_timestamp": "Nov 20, 2026 9:30 AM"
		}`, string(raw))
	})

	t.Run("not eligible names the sub-reason", func(t *testing.T) {
		res := NotEligible("K7Q2ZP9A", regmodels.IneligibleOutsideWindow)
		assert.Equal(t, ReasonNotEligible, res.Reason())
		assert.Equal(t, "Check-in is not open yet for this event.", res.Failure.HumanMessage)
		assert.Equal(t, "outside_window", res.Failure.Detail)
	})

	t.Run("unknown reasons fall back to a generic message", func(t *testing.T) {
		assert.Equal(t, "Check-in failed.", Reason("mystery").Message())
	})
}

func TestBulkResultAdd(t *testing.T) {
	b := NewBulkResult()
	b.Add(Result{Success: &Success{Code: "AAAAAAAA"}})
	b.Add(AlreadyCheckedIn("BBBBBBBB", time.Now()))
	b.Add(NewFailure("CCCCCCCC", ReasonNotFound))
	b.Add(NewFailure("DDDDDDDD", ReasonPersistenceError))

	assert.Equal(t, BulkSummary{Total: 4, Successful: 1, Failed: 2, AlreadyCheckedIn: 1}, b.Summary)
	assert.Equal(t, "BBBBBBBB", b.AlreadyCheckedIn[0].Code)
	assert.Equal(t, []Reason{ReasonNotFound, ReasonPersistenceError},
		[]Reason{b.Failed[0].ReasonCode, b.Failed[1].ReasonCode})

	raw, err := json.Marshal(NewBulkResult())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"successful":[]`)
}

func TestAttendanceRate(t *testing.T) {
	assert.Zero(t, Stats{}.AttendanceRate())
	assert.InDelta(t, 0.5, Stats{Confirmed: 4, CheckedIn: 2}.AttendanceRate(), 0.0001)
}
