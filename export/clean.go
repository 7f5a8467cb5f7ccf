// Package export feeds the distributed batch engine: it cleans the raw
// datasets, encodes them as Parquet and uploads them to object storage under
// date-partitioned keys.
package export

import (
	"github.com/commercelab/shopetl/record"
)

// TxRow is one cleaned transaction with the derived date columns the batch
// engine partitions on.
type TxRow struct {
	TransactionID string  `parquet:"transaction_id"`
	UserID        string  `parquet:"user_id"`
	Timestamp     string  `parquet:"timestamp"`
	Date          string  `parquet:"date"`
	Month         int32   `parquet:"month"`
	Year          int32   `parquet:"year"`
	Status        string  `parquet:"status"`
	PaymentMethod string  `parquet:"payment_method"`
	ItemCount     int32   `parquet:"item_count"`
	Subtotal      float64 `parquet:"subtotal"`
	Discount      float64 `parquet:"discount"`
	Total         float64 `parquet:"total"`
}

type UserRow struct {
	UserID           string `parquet:"user_id"`
	RegistrationDate string `parquet:"registration_date"`
	Country          string `parquet:"country"`
	State            string `parquet:"state"`
	City             string `parquet:"city"`
}

type ProductRow struct {
	ProductID    string  `parquet:"product_id"`
	Name         string  `parquet:"name"`
	CategoryID   string  `parquet:"category_id"`
	BasePrice    float64 `parquet:"base_price"`
	CurrentStock int32   `parquet:"current_stock"`
	IsActive     bool    `parquet:"is_active"`
}

// SessionRow flattens the nested device and geo documents into columns.
type SessionRow struct {
	SessionID        string `parquet:"session_id"`
	UserID           string `parquet:"user_id"`
	StartTime        string `parquet:"start_time"`
	DurationSeconds  int32  `parquet:"duration_seconds"`
	ConversionStatus string `parquet:"conversion_status"`
	Referrer         string `parquet:"referrer"`
	DeviceType       string `parquet:"device_type"`
	DeviceOS         string `parquet:"device_os"`
	Browser          string `parquet:"browser"`
	Country          string `parquet:"country"`
	State            string `parquet:"state"`
	City             string `parquet:"city"`
	PageViews        int32  `parquet:"page_views"`
	ViewedProducts   int32  `parquet:"viewed_products"`
	CartItems        int32  `parquet:"cart_items"`
}

// CleanTransaction validates and flattens one raw transaction. The derived
// date, month and year come from the parsed timestamp.
func CleanTransaction(t record.Transaction) (TxRow, error) {
	if err := t.Validate(); err != nil {
		return TxRow{}, err
	}
	ts, err := record.ParseDate(t.Timestamp)
	if err != nil {
		return TxRow{}, err
	}
	return TxRow{
		TransactionID: t.TransactionID,
		UserID:        t.UserID,
		Timestamp:     t.Timestamp,
		Date:          ts.Format("2006-01-02"),
		Month:         int32(ts.Month()),
		Year:          int32(ts.Year()),
		Status:        t.Status,
		PaymentMethod: t.PaymentMethod,
		ItemCount:     int32(len(t.Items)),
		Subtotal:      t.Subtotal,
		Discount:      t.Discount,
		Total:         t.Total,
	}, nil
}

func CleanUser(u record.User) (UserRow, error) {
	if err := u.Validate(); err != nil {
		return UserRow{}, err
	}
	return UserRow{
		UserID:           u.UserID,
		RegistrationDate: u.RegistrationDate,
		Country:          u.GeoData.Country,
		State:            u.GeoData.State,
		City:             u.GeoData.City,
	}, nil
}

func CleanProduct(p record.Product) (ProductRow, error) {
	if err := p.Validate(); err != nil {
		return ProductRow{}, err
	}
	return ProductRow{
		ProductID:    p.ProductID,
		Name:         p.Name,
		CategoryID:   p.CategoryID,
		BasePrice:    p.BasePrice,
		CurrentStock: int32(p.CurrentStock),
		IsActive:     p.IsActive,
	}, nil
}

func CleanSession(s record.Session) (SessionRow, error) {
	if err := s.Validate(); err != nil {
		return SessionRow{}, err
	}
	return SessionRow{
		SessionID:        s.SessionID,
		UserID:           s.UserID,
		StartTime:        s.StartTime,
		DurationSeconds:  int32(s.DurationSeconds),
		ConversionStatus: s.ConversionStatus,
		Referrer:         s.Referrer,
		DeviceType:       s.DeviceProfile.Type,
		DeviceOS:         s.DeviceProfile.OS,
		Browser:          s.DeviceProfile.Browser,
		Country:          s.GeoData.Country,
		State:            s.GeoData.State,
		City:             s.GeoData.City,
		PageViews:        int32(len(s.PageViews)),
		ViewedProducts:   int32(len(s.ViewedProducts)),
		CartItems:        int32(len(s.CartContents)),
	}, nil
}

// dedupe keeps the first row seen per key, preserving input order.
func dedupe[R any](rows []R, key func(R) string) []R {
	seen := make(map[string]struct{}, len(rows))
	out := rows[:0]
	for _, r := range rows {
		k := key(r)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
