package record

import (
	"strings"
	"testing"
)

func validSession() Session {
	return Session{
		SessionID:        "sess_0001",
		UserID:           "user_000042",
		StartTime:        "2025-03-12T14:37:22",
		EndTime:          "2025-03-12T15:02:10",
		DurationSeconds:  1488,
		ConversionStatus: "converted",
		Referrer:         "organic",
		DeviceProfile:    DeviceProfile{Type: "mobile", OS: "android", Browser: "chrome"},
		GeoData:          GeoData{City: "Kigali", State: "Kigali", Country: "RW", IPAddress: "10.0.0.1"},
	}
}

func TestSession_Validate(t *testing.T) {
	if err := validSession().Validate(); err != nil {
		t.Fatalf("valid session rejected: %v", err)
	}

	s := validSession()
	s.UserID = ""
	if err := s.Validate(); err == nil || !strings.Contains(err.Error(), "user_id") {
		t.Fatalf("expected user_id error, got %v", err)
	}

	s = validSession()
	s.StartTime = "not-a-time"
	if err := s.Validate(); err == nil {
		t.Fatalf("expected start_time parse error")
	}

	s = validSession()
	s.DurationSeconds = -1
	if err := s.Validate(); err == nil {
		t.Fatalf("expected duration error")
	}
}

func TestSession_RowKey(t *testing.T) {
	s := validSession()
	want := "user_000042_2025-03-12T14:37:22"
	if got := s.RowKey(); got != want {
		t.Fatalf("row key %q want %q", got, want)
	}
}

func TestSession_RowKeysSortChronologicallyPerUser(t *testing.T) {
	a := validSession()
	b := validSession()
	b.StartTime = "2025-03-13T09:00:00"

	if !(a.RowKey() < b.RowKey()) {
		t.Fatalf("later session does not sort after earlier one: %q vs %q", a.RowKey(), b.RowKey())
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{
		"2025-03-12T14:37:22Z",
		"2025-03-12T14:37:22",
		"2025-03-12 14:37:22",
		"2025-03-12",
	} {
		if _, err := ParseDate(s); err != nil {
			t.Fatalf("ParseDate(%q): %v", s, err)
		}
	}
	if _, err := ParseDate("12/03/2025"); err == nil {
		t.Fatalf("expected error for unknown layout")
	}
}

func TestTransaction_Validate(t *testing.T) {
	tx := Transaction{TransactionID: "txn_1", UserID: "user_1", Timestamp: "2025-01-01", Status: "completed", Total: 10}
	if err := tx.Validate(); err != nil {
		t.Fatalf("valid transaction rejected: %v", err)
	}

	tx.Total = -1
	if err := tx.Validate(); err == nil {
		t.Fatalf("expected negative total error")
	}

	tx = Transaction{UserID: "user_1"}
	if err := tx.Validate(); err == nil {
		t.Fatalf("expected missing transaction_id error")
	}
}
