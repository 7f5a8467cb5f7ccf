package export

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/s3/transfermanager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/parquet-go/parquet-go"

	"github.com/commercelab/shopetl/record"
)

type fakeS3 struct {
	mu       sync.Mutex
	putCalls int
	lastIn   *s3.PutObjectInput
	lastBody []byte
	putErr   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCalls++
	f.lastIn = in
	if f.putErr != nil {
		return nil, f.putErr
	}
	if in.Body != nil {
		b, _ := io.ReadAll(in.Body)
		f.lastBody = b
	}
	return &s3.PutObjectOutput{}, nil
}

type fakeUploader struct {
	mu       sync.Mutex
	putCalls int
	lastIn   *transfermanager.PutObjectInput
}

func (f *fakeUploader) PutObject(_ context.Context, in *transfermanager.PutObjectInput, _ ...func(*transfermanager.Options)) (*transfermanager.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCalls++
	f.lastIn = in
	return &transfermanager.PutObjectOutput{}, nil
}

func readAllParquet[R any](t *testing.T, b []byte) []R {
	t.Helper()
	r := parquet.NewGenericReader[R](bytes.NewReader(b))
	defer r.Close()

	buf := make([]R, 64)
	var out []R
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("reading parquet: %v", err)
		}
	}
	return out
}

func writeDataset(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func testExporter(t *testing.T, api s3API) *Exporter {
	t.Helper()
	sink, err := NewObjectSink(api, "etl-bucket", "exports")
	if err != nil {
		t.Fatalf("NewObjectSink: %v", err)
	}
	e, err := NewExporter(sink, "snappy")
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}
	e.now = func() time.Time { return time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC) }
	e.newID = func() string { return "feedface0001" }
	return e
}

func TestCleanTransaction_DerivedColumns(t *testing.T) {
	row, err := CleanTransaction(record.Transaction{
		TransactionID: "tx_0001",
		UserID:        "user_0001",
		Timestamp:     "2025-03-12T14:37:22",
		Status:        "completed",
		Items:         []record.LineItem{{ProductID: "prod_1", Quantity: 2, Subtotal: 59.98}},
		Subtotal:      59.98,
		Total:         59.98,
	})
	if err != nil {
		t.Fatalf("CleanTransaction: %v", err)
	}
	if row.Date != "2025-03-12" || row.Month != 3 || row.Year != 2025 {
		t.Fatalf("unexpected derived columns %+v", row)
	}
	if row.ItemCount != 1 {
		t.Fatalf("expected item count 1, got %d", row.ItemCount)
	}
}

func TestCleanSession_FlattensNestedDocs(t *testing.T) {
	row, err := CleanSession(record.Session{
		SessionID: "sess_0001",
		UserID:    "user_0001",
		StartTime: "2025-03-12T14:37:22",
		DeviceProfile: record.DeviceProfile{
			Type: "mobile", OS: "ios", Browser: "safari",
		},
		GeoData:        record.GeoData{Country: "BR", State: "SP", City: "Campinas"},
		ViewedProducts: []string{"prod_1", "prod_2"},
		PageViews:      []record.PageView{{URL: "/p/1"}, {URL: "/p/2"}, {URL: "/cart"}},
	})
	if err != nil {
		t.Fatalf("CleanSession: %v", err)
	}
	if row.DeviceType != "mobile" || row.Country != "BR" {
		t.Fatalf("expected flattened device and geo, got %+v", row)
	}
	if row.PageViews != 3 || row.ViewedProducts != 2 {
		t.Fatalf("unexpected counters %+v", row)
	}
}

func TestExporter_TransactionsRoundTrip(t *testing.T) {
	path := writeDataset(t, "transactions.json", `[
		{"transaction_id":"tx_1","user_id":"u1","timestamp":"2025-01-05T09:00:00","status":"completed","items":[],"subtotal":10,"discount":0,"total":10},
		{"transaction_id":"tx_2","user_id":"u2","timestamp":"2025-02-06T09:00:00","status":"cancelled","items":[],"subtotal":20,"discount":0,"total":20},
		{"transaction_id":"tx_1","user_id":"u1","timestamp":"2025-01-05T09:00:00","status":"completed","items":[],"subtotal":10,"discount":0,"total":10},
		{"transaction_id":"","user_id":"u3","timestamp":"2025-01-07T09:00:00","status":"completed","items":[],"subtotal":5,"discount":0,"total":5}
	]`)

	api := &fakeS3{}
	e := testExporter(t, api)

	res, err := e.Transactions(context.Background(), path)
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}

	// tx_1 duplicate and the unidentified row are dropped.
	if res.Rows != 2 || res.Dropped != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	want := "transactions/2025/03/12/feedface0001.parquet"
	if res.Key != want {
		t.Fatalf("key = %q, want %q", res.Key, want)
	}
	if api.putCalls != 1 {
		t.Fatalf("expected 1 put, got %d", api.putCalls)
	}
	if got := *api.lastIn.Key; got != "exports/"+want {
		t.Fatalf("object key = %q", got)
	}

	rows := readAllParquet[TxRow](t, api.lastBody)
	if len(rows) != 2 {
		t.Fatalf("expected 2 parquet rows, got %d", len(rows))
	}
	if rows[0].TransactionID != "tx_1" || rows[0].Month != 1 || rows[0].Year != 2025 {
		t.Fatalf("unexpected first row %+v", rows[0])
	}
}

func TestObjectSink_LargePayloadTakesMultipartPath(t *testing.T) {
	api := &fakeS3{}
	up := &fakeUploader{}

	sink, err := NewObjectSink(api, "etl-bucket", "")
	if err != nil {
		t.Fatalf("NewObjectSink: %v", err)
	}
	sink.WithUploader(up, 1024)

	small := bytes.Repeat([]byte("a"), 100)
	if err := sink.Put(context.Background(), "k/small", small, "text/plain"); err != nil {
		t.Fatalf("Put small: %v", err)
	}
	large := bytes.Repeat([]byte("b"), 4096)
	if err := sink.Put(context.Background(), "k/large", large, "text/plain"); err != nil {
		t.Fatalf("Put large: %v", err)
	}

	if api.putCalls != 1 || up.putCalls != 1 {
		t.Fatalf("expected one put per path, got s3=%d multipart=%d", api.putCalls, up.putCalls)
	}
	if up.lastIn.Key != "k/large" || up.lastIn.Bucket != "etl-bucket" {
		t.Fatalf("unexpected multipart input %+v", up.lastIn)
	}
}

func TestObjectSink_Validation(t *testing.T) {
	if _, err := NewObjectSink(nil, "b", ""); err == nil {
		t.Fatal("expected error for nil client")
	}
	if _, err := NewObjectSink(&fakeS3{}, "  ", ""); err == nil {
		t.Fatal("expected error for empty bucket")
	}

	sink, err := NewObjectSink(&fakeS3{}, "b", "")
	if err != nil {
		t.Fatalf("NewObjectSink: %v", err)
	}
	if err := sink.Put(context.Background(), "", nil, ""); err == nil || !strings.Contains(err.Error(), "empty key") {
		t.Fatalf("expected empty key error, got %v", err)
	}
}

func TestDedupe_KeepsFirstInOrder(t *testing.T) {
	rows := []UserRow{
		{UserID: "u1", City: "first"},
		{UserID: "u2"},
		{UserID: "u1", City: "second"},
	}
	out := dedupe(rows, func(r UserRow) string { return r.UserID })
	if len(out) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out))
	}
	if out[0].City != "first" {
		t.Fatalf("expected first occurrence kept, got %+v", out[0])
	}
}
