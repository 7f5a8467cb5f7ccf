package hbase

import (
	"context"
	"testing"

	"github.com/commercelab/shopetl/record"
)

func sampleSession() record.Session {
	return record.Session{
		SessionID:        "sess_0001",
		UserID:           "user_000042",
		StartTime:        "2025-03-12T14:37:22",
		EndTime:          "2025-03-12T15:02:10",
		DurationSeconds:  1488,
		ConversionStatus: "converted",
		Referrer:         "organic",
		DeviceProfile:    record.DeviceProfile{Type: "mobile", OS: "android", Browser: "chrome"},
		GeoData:          record.GeoData{City: "Kigali", State: "Kigali", Country: "RW", IPAddress: "10.0.0.1"},
		ViewedProducts:   []string{"prod_00001", "prod_00002"},
		CartContents:     []record.CartItem{{ProductID: "prod_00001", Quantity: 2}},
		PageViews:        []record.PageView{{URL: "/"}, {URL: "/p/1"}, {URL: "/cart"}},
	}
}

func TestSessionKey(t *testing.T) {
	key, err := SessionKey(sampleSession())
	if err != nil {
		t.Fatalf("SessionKey: %v", err)
	}
	if key != "user_000042_2025-03-12T14:37:22" {
		t.Fatalf("key = %q", key)
	}

	bad := sampleSession()
	bad.StartTime = ""
	if _, err := SessionKey(bad); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestMapSession_Columns(t *testing.T) {
	muts, err := MapSession(sampleSession())
	if err != nil {
		t.Fatalf("MapSession: %v", err)
	}

	byCol := map[string]string{}
	for _, m := range muts {
		if m.IsDelete {
			t.Fatalf("unexpected delete mutation for %s", m.Column)
		}
		byCol[m.Column] = string(m.Value)
	}

	want := map[string]string{
		ColSessionID:        "sess_0001",
		ColDuration:         "1488",
		ColConversionStatus: "converted",
		ColDeviceType:       "mobile",
		ColGeoCity:          "Kigali",
		ColPageViewsCount:   "3",
		ColViewedProducts:   `["prod_00001","prod_00002"]`,
	}
	for col, val := range want {
		if byCol[col] != val {
			t.Fatalf("%s = %q, want %q", col, byCol[col], val)
		}
	}

	// Only columns from the closed family set.
	fams := map[string]bool{}
	for _, f := range Families() {
		fams[f] = true
	}
	for col := range byCol {
		i := 0
		for ; i < len(col) && col[i] != ':'; i++ {
		}
		if !fams[col[:i]] {
			t.Fatalf("column %s outside known families", col)
		}
	}
}

func TestParseSummary(t *testing.T) {
	row := &TRowResult{
		Row: "user_000042_2025-03-12T14:37:22",
		Columns: map[string]*TCell{
			ColSessionID:        {Value: []byte("sess_0001")},
			ColStartTime:        {Value: []byte("2025-03-12T14:37:22")},
			ColConversionStatus: {Value: []byte("converted")},
			ColDeviceType:       {Value: []byte("mobile")},
			ColGeoCity:          {Value: []byte("Kigali")},
		},
	}

	s := ParseSummary(row)
	if s.UserID != "user_000042" {
		t.Fatalf("user id %q", s.UserID)
	}
	if s.SessionID != "sess_0001" || s.DeviceType != "mobile" || s.City != "Kigali" {
		t.Fatalf("summary = %+v", s)
	}
	if s.Referrer != "" {
		t.Fatalf("missing column should be empty, got %q", s.Referrer)
	}
}

func TestUserIDFromRowKey(t *testing.T) {
	cases := map[string]string{
		"user_000042_2025-03-12T14:37:22": "user_000042",
		"u1_2025-01-01":                   "u1",
		"nokey":                           "nokey",
	}
	for key, want := range cases {
		if got := userIDFromRowKey(key); got != want {
			t.Fatalf("userIDFromRowKey(%q) = %q, want %q", key, got, want)
		}
	}
}

type fakeAdmin struct {
	tables  []string
	listErr error

	created         map[string][]string
	createErr       error
	alreadyExistErr bool
}

func (a *fakeAdmin) GetTableNames(ctx context.Context) ([]string, error) {
	return a.tables, a.listErr
}

func (a *fakeAdmin) CreateTable(ctx context.Context, table string, families []string) error {
	if a.createErr != nil {
		return a.createErr
	}
	if a.alreadyExistErr {
		return &AlreadyExists{Message: table}
	}
	if a.created == nil {
		a.created = map[string][]string{}
	}
	a.created[table] = families
	return nil
}

func TestEnsureSessionsTable_CreatesWhenMissing(t *testing.T) {
	adm := &fakeAdmin{tables: []string{"other"}}
	if err := EnsureSessionsTable(context.Background(), adm); err != nil {
		t.Fatalf("EnsureSessionsTable: %v", err)
	}
	fams := adm.created[TableSessions]
	if len(fams) != 4 {
		t.Fatalf("families = %v", fams)
	}
	want := []string{"session_info", "device", "geo", "activity"}
	for i, f := range want {
		if fams[i] != f {
			t.Fatalf("family[%d] = %q, want %q", i, fams[i], f)
		}
	}
}

func TestEnsureSessionsTable_SkipsWhenPresent(t *testing.T) {
	adm := &fakeAdmin{tables: []string{TableSessions}}
	if err := EnsureSessionsTable(context.Background(), adm); err != nil {
		t.Fatalf("EnsureSessionsTable: %v", err)
	}
	if len(adm.created) != 0 {
		t.Fatalf("must not create an existing table, created %v", adm.created)
	}
}

func TestEnsureSessionsTable_LosingRaceIsFine(t *testing.T) {
	adm := &fakeAdmin{alreadyExistErr: true}
	if err := EnsureSessionsTable(context.Background(), adm); err != nil {
		t.Fatalf("AlreadyExists must be tolerated, got %v", err)
	}
}

func TestEnsureSessionsTable_PropagatesErrors(t *testing.T) {
	if err := EnsureSessionsTable(context.Background(), &fakeAdmin{listErr: &IOError{Message: "down"}}); err == nil {
		t.Fatal("expected list error")
	}
	if err := EnsureSessionsTable(context.Background(), &fakeAdmin{createErr: &IOError{Message: "denied"}}); err == nil {
		t.Fatal("expected create error")
	}
}
