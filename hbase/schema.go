package hbase

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"github.com/commercelab/shopetl/record"
)

// TableSessions is the wide-column table holding browsing sessions.
const TableSessions = "sessions"

// The closed set of column families of the sessions table. Everything written
// or read goes through the qualified column constants below; call sites never
// build family:qualifier strings ad hoc.
const (
	famSessionInfo = "session_info"
	famDevice      = "device"
	famGeo         = "geo"
	famActivity    = "activity"
)

const (
	ColSessionID        = famSessionInfo + ":session_id"
	ColDuration         = famSessionInfo + ":duration"
	ColConversionStatus = famSessionInfo + ":conversion_status"
	ColReferrer         = famSessionInfo + ":referrer"
	ColStartTime        = famSessionInfo + ":start_time"
	ColEndTime          = famSessionInfo + ":end_time"

	ColDeviceType    = famDevice + ":type"
	ColDeviceOS      = famDevice + ":os"
	ColDeviceBrowser = famDevice + ":browser"

	ColGeoCity    = famGeo + ":city"
	ColGeoState   = famGeo + ":state"
	ColGeoCountry = famGeo + ":country"
	ColGeoIP      = famGeo + ":ip_address"

	ColViewedProducts = famActivity + ":viewed_products"
	ColCartContents   = famActivity + ":cart_contents"
	ColPageViewsCount = famActivity + ":page_views_count"
)

// Families lists the column families the sessions table must be created with.
func Families() []string {
	return []string{famSessionInfo, famDevice, famGeo, famActivity}
}

// Admin is the table-management slice of the gateway. *Client implements it.
type Admin interface {
	GetTableNames(ctx context.Context) ([]string, error)
	CreateTable(ctx context.Context, table string, families []string) error
}

var _ Admin = (*Client)(nil)

// EnsureSessionsTable creates the sessions table with its column families
// when the gateway does not have it. Losing a creation race to another
// client is not an error.
func EnsureSessionsTable(ctx context.Context, adm Admin) error {
	tables, err := adm.GetTableNames(ctx)
	if err != nil {
		return errors.Wrap(err, "listing tables")
	}
	for _, t := range tables {
		if t == TableSessions {
			return nil
		}
	}
	err = adm.CreateTable(ctx, TableSessions, Families())
	var exists *AlreadyExists
	if errors.As(err, &exists) {
		return nil
	}
	return errors.Wrapf(err, "creating table %s", TableSessions)
}

// SessionKey validates the session and derives its row key. Row keys are
// <user_id>_<start_time>, so one user's sessions are adjacent and
// chronological in the store.
func SessionKey(s record.Session) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	return s.RowKey(), nil
}

// MapSession converts a validated session into the column mutations of one
// row. The list and map fields of the session are stored JSON-encoded.
func MapSession(s record.Session) ([]*Mutation, error) {
	viewed, err := json.Marshal(s.ViewedProducts)
	if err != nil {
		return nil, errors.Wrapf(err, "session %s: viewed_products", s.SessionID)
	}
	cart, err := json.Marshal(s.CartContents)
	if err != nil {
		return nil, errors.Wrapf(err, "session %s: cart_contents", s.SessionID)
	}

	set := func(col, val string) *Mutation {
		return &Mutation{Column: col, Value: []byte(val)}
	}

	return []*Mutation{
		set(ColSessionID, s.SessionID),
		set(ColDuration, strconv.Itoa(s.DurationSeconds)),
		set(ColConversionStatus, s.ConversionStatus),
		set(ColReferrer, s.Referrer),
		set(ColStartTime, s.StartTime),
		set(ColEndTime, s.EndTime),

		set(ColDeviceType, s.DeviceProfile.Type),
		set(ColDeviceOS, s.DeviceProfile.OS),
		set(ColDeviceBrowser, s.DeviceProfile.Browser),

		set(ColGeoCity, s.GeoData.City),
		set(ColGeoState, s.GeoData.State),
		set(ColGeoCountry, s.GeoData.Country),
		set(ColGeoIP, s.GeoData.IPAddress),

		{Column: ColViewedProducts, Value: viewed},
		{Column: ColCartContents, Value: cart},
		set(ColPageViewsCount, strconv.Itoa(len(s.PageViews))),
	}, nil
}

// SessionSummary is the flattened view of a stored session row used by the
// query layer and reports.
type SessionSummary struct {
	RowKey           string
	UserID           string
	SessionID        string
	StartTime        string
	Duration         string
	ConversionStatus string
	Referrer         string
	DeviceType       string
	Browser          string
	City             string
	State            string
	PageViews        string
}

func cellString(r *TRowResult, col string) string {
	if c, ok := r.Columns[col]; ok {
		return string(c.Value)
	}
	return ""
}

// ParseSummary flattens a fetched row. The user id is recovered from the row
// key prefix (everything before the final underscore-separated timestamp).
func ParseSummary(r *TRowResult) SessionSummary {
	return SessionSummary{
		RowKey:           r.Row,
		UserID:           userIDFromRowKey(r.Row),
		SessionID:        cellString(r, ColSessionID),
		StartTime:        cellString(r, ColStartTime),
		Duration:         cellString(r, ColDuration),
		ConversionStatus: cellString(r, ColConversionStatus),
		Referrer:         cellString(r, ColReferrer),
		DeviceType:       cellString(r, ColDeviceType),
		Browser:          cellString(r, ColDeviceBrowser),
		City:             cellString(r, ColGeoCity),
		State:            cellString(r, ColGeoState),
		PageViews:        cellString(r, ColPageViewsCount),
	}
}

func userIDFromRowKey(key string) string {
	// Row key is <user_id>_<start_time>; the timestamp is the part after the
	// last underscore before the time string, but user ids themselves contain
	// underscores (user_000042). The start time always begins with a digit
	// year, so cut at the last underscore.
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '_' {
			return key[:i]
		}
	}
	return key
}
