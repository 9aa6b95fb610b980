package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseRegistrationID checks parsing never panics and valid ids round-trip.
func FuzzParseRegistrationID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("K7Q2ZP9A")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseRegistrationID(input)
		if err == nil {
			roundTrip, err2 := ParseRegistrationID(id.String())
			if err2 != nil {
				t.Errorf("valid id failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("round-trip changed id value")
			}
		}
		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

func FuzzParseAllIDs(f *testing.F) {
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("")
	f.Add("invalid")

	f.Fuzz(func(t *testing.T, input string) {
		_, errUser := ParseUserID(input)
		_, errEvent := ParseEventID(input)
		_, errRegistration := ParseRegistrationID(input)
		_, errCheckIn := ParseCheckInID(input)

		accepted := errUser == nil
		if (errEvent == nil) != accepted || (errRegistration == nil) != accepted || (errCheckIn == nil) != accepted {
			t.Error("inconsistent parsing across id types")
		}
	})
}
