package record

import "github.com/pkg/errors"

type DeviceProfile struct {
	Type    string `json:"type" bson:"type"`
	OS      string `json:"os" bson:"os"`
	Browser string `json:"browser" bson:"browser"`
}

type PageView struct {
	URL       string `json:"url,omitempty" bson:"url,omitempty"`
	Timestamp string `json:"timestamp,omitempty" bson:"timestamp,omitempty"`
}

type CartItem struct {
	ProductID string `json:"product_id" bson:"product_id"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}

// Session is one browsing session. In the wide-column store a session is
// stored under the row key <user_id>_<start_time> so that all sessions of a
// user sort together chronologically.
type Session struct {
	SessionID        string        `json:"session_id" bson:"session_id"`
	UserID           string        `json:"user_id" bson:"user_id"`
	StartTime        string        `json:"start_time" bson:"start_time"`
	EndTime          string        `json:"end_time" bson:"end_time"`
	DurationSeconds  int           `json:"duration_seconds" bson:"duration_seconds"`
	ConversionStatus string        `json:"conversion_status" bson:"conversion_status"`
	Referrer         string        `json:"referrer" bson:"referrer"`
	DeviceProfile    DeviceProfile `json:"device_profile" bson:"device_profile"`
	GeoData          GeoData       `json:"geo_data" bson:"geo_data"`
	ViewedProducts   []string      `json:"viewed_products" bson:"viewed_products"`
	CartContents     []CartItem    `json:"cart_contents" bson:"cart_contents"`
	PageViews        []PageView    `json:"page_views" bson:"page_views"`
}

func (s Session) Validate() error {
	if s.SessionID == "" {
		return errors.New("session: missing session_id")
	}
	if s.UserID == "" {
		return errors.Errorf("session %s: missing user_id", s.SessionID)
	}
	if s.StartTime == "" {
		return errors.Errorf("session %s: missing start_time", s.SessionID)
	}
	if _, err := ParseDate(s.StartTime); err != nil {
		return errors.Wrapf(err, "session %s: start_time", s.SessionID)
	}
	if s.DurationSeconds < 0 {
		return errors.Errorf("session %s: negative duration %d", s.SessionID, s.DurationSeconds)
	}
	return nil
}

// RowKey is the wide-column row key for the session.
func (s Session) RowKey() string {
	return s.UserID + "_" + s.StartTime
}
