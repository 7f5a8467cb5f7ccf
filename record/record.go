// Package record defines the typed e-commerce dataset model shared by the
// loaders, query layers and the export pass. Field names follow the raw JSON
// files produced by the dataset generator.
package record

import (
	"time"

	"github.com/pkg/errors"
)

type Category struct {
	CategoryID  string `json:"category_id" bson:"category_id"`
	Name        string `json:"name" bson:"name"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
}

func (c Category) Validate() error {
	if c.CategoryID == "" {
		return errors.New("category: missing category_id")
	}
	return nil
}

type Product struct {
	ProductID    string  `json:"product_id" bson:"product_id"`
	Name         string  `json:"name" bson:"name"`
	CategoryID   string  `json:"category_id" bson:"category_id"`
	BasePrice    float64 `json:"base_price" bson:"base_price"`
	CurrentStock int     `json:"current_stock" bson:"current_stock"`
	IsActive     bool    `json:"is_active" bson:"is_active"`
}

func (p Product) Validate() error {
	if p.ProductID == "" {
		return errors.New("product: missing product_id")
	}
	if p.BasePrice < 0 {
		return errors.Errorf("product %s: negative base_price %f", p.ProductID, p.BasePrice)
	}
	return nil
}

// GeoData is shared by users and sessions.
type GeoData struct {
	City      string `json:"city" bson:"city"`
	State     string `json:"state" bson:"state"`
	Country   string `json:"country" bson:"country"`
	IPAddress string `json:"ip_address,omitempty" bson:"ip_address,omitempty"`
}

type User struct {
	UserID           string  `json:"user_id" bson:"user_id"`
	Name             string  `json:"name,omitempty" bson:"name,omitempty"`
	Email            string  `json:"email,omitempty" bson:"email,omitempty"`
	RegistrationDate string  `json:"registration_date" bson:"registration_date"`
	LastActive       string  `json:"last_active,omitempty" bson:"last_active,omitempty"`
	GeoData          GeoData `json:"geo_data" bson:"geo_data"`
}

func (u User) Validate() error {
	if u.UserID == "" {
		return errors.New("user: missing user_id")
	}
	if u.RegistrationDate != "" {
		if _, err := ParseDate(u.RegistrationDate); err != nil {
			return errors.Wrapf(err, "user %s: registration_date", u.UserID)
		}
	}
	return nil
}

type LineItem struct {
	ProductID string  `json:"product_id" bson:"product_id"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	UnitPrice float64 `json:"unit_price,omitempty" bson:"unit_price,omitempty"`
	Subtotal  float64 `json:"subtotal" bson:"subtotal"`
}

type Transaction struct {
	TransactionID string     `json:"transaction_id" bson:"transaction_id"`
	UserID        string     `json:"user_id" bson:"user_id"`
	SessionID     string     `json:"session_id,omitempty" bson:"session_id,omitempty"`
	Timestamp     string     `json:"timestamp" bson:"timestamp"`
	Status        string     `json:"status" bson:"status"`
	PaymentMethod string     `json:"payment_method,omitempty" bson:"payment_method,omitempty"`
	Items         []LineItem `json:"items" bson:"items"`
	Subtotal      float64    `json:"subtotal" bson:"subtotal"`
	Discount      float64    `json:"discount" bson:"discount"`
	Total         float64    `json:"total" bson:"total"`
}

func (t Transaction) Validate() error {
	if t.TransactionID == "" {
		return errors.New("transaction: missing transaction_id")
	}
	if t.UserID == "" {
		return errors.Errorf("transaction %s: missing user_id", t.TransactionID)
	}
	if t.Total < 0 {
		return errors.Errorf("transaction %s: negative total %f", t.TransactionID, t.Total)
	}
	return nil
}

// Timestamp layouts seen in the raw files, most specific first.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses a raw-file timestamp trying the known layouts in order.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognized timestamp %q", s)
}
