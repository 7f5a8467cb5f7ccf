package hbase

import (
	"context"
	"sort"

	"github.com/pkg/errors"
)

// scanPageSize is how many rows one scannerGetList call fetches.
const scanPageSize = 500

// Table runs read queries against one wide-column table.
type Table struct {
	gw   Gateway
	name string
}

func NewTable(gw Gateway, name string) *Table {
	return &Table{gw: gw, name: name}
}

// UserSessions returns up to limit sessions of one user, oldest first. This
// is the cheap access path: with row keys of <user_id>_<start_time> a prefix
// scan touches only that user's rows.
func (t *Table) UserSessions(ctx context.Context, userID string, limit int) ([]SessionSummary, error) {
	id, err := t.gw.ScannerOpenWithPrefix(ctx, t.name, userID+"_", nil)
	if err != nil {
		return nil, errors.Wrapf(err, "opening prefix scan for %s", userID)
	}
	defer t.gw.ScannerClose(ctx, id)

	var out []SessionSummary
	for len(out) < limit {
		n := int32(limit - len(out))
		if n > scanPageSize {
			n = scanPageSize
		}
		rows, err := t.gw.ScannerGetList(ctx, id, n)
		if err != nil {
			return nil, errors.Wrap(err, "scanning user sessions")
		}
		if len(rows) == 0 {
			break
		}
		for _, r := range rows {
			out = append(out, ParseSummary(r))
		}
	}
	return out, nil
}

// ConvertedSessions scans up to maxScan rows and returns the first limit
// sessions whose conversion status is "converted", plus the number of rows
// actually scanned. A full-table filter like this is a sampling convenience;
// whole-dataset aggregation belongs to the batch engine.
func (t *Table) ConvertedSessions(ctx context.Context, limit, maxScan int) ([]SessionSummary, int, error) {
	id, err := t.gw.ScannerOpen(ctx, t.name, "", nil)
	if err != nil {
		return nil, 0, errors.Wrap(err, "opening scan")
	}
	defer t.gw.ScannerClose(ctx, id)

	var out []SessionSummary
	scanned := 0
	for scanned < maxScan && len(out) < limit {
		n := int32(maxScan - scanned)
		if n > scanPageSize {
			n = scanPageSize
		}
		rows, err := t.gw.ScannerGetList(ctx, id, n)
		if err != nil {
			return nil, scanned, errors.Wrap(err, "scanning sessions")
		}
		if len(rows) == 0 {
			break
		}
		for _, r := range rows {
			scanned++
			if cellString(r, ColConversionStatus) != "converted" {
				continue
			}
			out = append(out, ParseSummary(r))
			if len(out) >= limit {
				break
			}
		}
	}
	return out, scanned, nil
}

// SessionDetails fetches one row by key and returns every stored column.
// Returns nil when the row does not exist.
func (t *Table) SessionDetails(ctx context.Context, rowKey string) (map[string]string, error) {
	row, err := t.gw.GetRow(ctx, t.name, rowKey)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching row %s", rowKey)
	}
	if row == nil {
		return nil, nil
	}
	out := make(map[string]string, len(row.Columns))
	for col, cell := range row.Columns {
		out[col] = string(cell.Value)
	}
	return out, nil
}

// Funnel counts the browse-to-buy stages over a scanned sample. Stages are
// cumulative from the left: every carted session also viewed.
type Funnel struct {
	Sampled   int
	Viewed    int
	Carted    int
	Converted int
}

// FunnelStages samples up to sampleSize rows and counts sessions that viewed
// products, put something in the cart, and converted. Restricted to the three
// activity columns that decide the stages.
func (t *Table) FunnelStages(ctx context.Context, sampleSize int) (Funnel, error) {
	cols := []string{ColViewedProducts, ColCartContents, ColConversionStatus}
	id, err := t.gw.ScannerOpen(ctx, t.name, "", cols)
	if err != nil {
		return Funnel{}, errors.Wrap(err, "opening funnel scan")
	}
	defer t.gw.ScannerClose(ctx, id)

	var f Funnel
	for f.Sampled < sampleSize {
		n := int32(sampleSize - f.Sampled)
		if n > scanPageSize {
			n = scanPageSize
		}
		rows, err := t.gw.ScannerGetList(ctx, id, n)
		if err != nil {
			return f, errors.Wrap(err, "scanning funnel sample")
		}
		if len(rows) == 0 {
			break
		}
		for _, r := range rows {
			f.Sampled++
			if jsonListEmpty(cellString(r, ColViewedProducts)) {
				continue
			}
			f.Viewed++
			carted := !jsonListEmpty(cellString(r, ColCartContents))
			if carted {
				f.Carted++
			}
			if cellString(r, ColConversionStatus) == "converted" && carted {
				f.Converted++
			}
		}
	}
	return f, nil
}

// jsonListEmpty reports whether a JSON-encoded list cell holds no elements.
// Missing cells and "null" count as empty.
func jsonListEmpty(cell string) bool {
	switch cell {
	case "", "[]", "null":
		return true
	}
	return false
}

// ConversionStat is the session and conversion tally for one value of a
// dimension (a device type, a referrer).
type ConversionStat struct {
	Label     string
	Sessions  int
	Converted int
}

// Rate is the conversion percentage for this label.
func (s ConversionStat) Rate() float64 {
	if s.Sessions == 0 {
		return 0
	}
	return float64(s.Converted) / float64(s.Sessions) * 100
}

// ConversionPerformance tallies sessions and conversions per device type and
// per referrer over a sample of up to sampleSize rows. One scan feeds both
// dimensions. Results are sorted by session count descending.
func (t *Table) ConversionPerformance(ctx context.Context, sampleSize int) (devices, referrers []ConversionStat, err error) {
	cols := []string{ColDeviceType, ColReferrer, ColConversionStatus}
	id, err := t.gw.ScannerOpen(ctx, t.name, "", cols)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening performance scan")
	}
	defer t.gw.ScannerClose(ctx, id)

	type tally struct{ sessions, converted int }
	byDevice := map[string]*tally{}
	byReferrer := map[string]*tally{}
	bump := func(m map[string]*tally, label string, converted bool) {
		if label == "" {
			label = "unknown"
		}
		c, ok := m[label]
		if !ok {
			c = &tally{}
			m[label] = c
		}
		c.sessions++
		if converted {
			c.converted++
		}
	}

	scanned := 0
	for scanned < sampleSize {
		n := int32(sampleSize - scanned)
		if n > scanPageSize {
			n = scanPageSize
		}
		rows, err := t.gw.ScannerGetList(ctx, id, n)
		if err != nil {
			return nil, nil, errors.Wrap(err, "scanning performance sample")
		}
		if len(rows) == 0 {
			break
		}
		for _, r := range rows {
			scanned++
			converted := cellString(r, ColConversionStatus) == "converted"
			bump(byDevice, cellString(r, ColDeviceType), converted)
			bump(byReferrer, cellString(r, ColReferrer), converted)
		}
	}

	collect := func(m map[string]*tally) []ConversionStat {
		out := make([]ConversionStat, 0, len(m))
		for label, c := range m {
			out = append(out, ConversionStat{Label: label, Sessions: c.sessions, Converted: c.converted})
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Sessions != out[j].Sessions {
				return out[i].Sessions > out[j].Sessions
			}
			return out[i].Label < out[j].Label
		})
		return out
	}
	return collect(byDevice), collect(byReferrer), nil
}

// DeviceCount is one device type with its share of a scanned sample.
type DeviceCount struct {
	Device string
	Count  int
}

// DeviceCounts tallies device types over a sample of up to sampleSize rows.
// The scan is restricted to the single device-type column to keep the
// transfer small. Results are sorted by count descending.
func (t *Table) DeviceCounts(ctx context.Context, sampleSize int) ([]DeviceCount, int, error) {
	id, err := t.gw.ScannerOpen(ctx, t.name, "", []string{ColDeviceType})
	if err != nil {
		return nil, 0, errors.Wrap(err, "opening device scan")
	}
	defer t.gw.ScannerClose(ctx, id)

	counts := map[string]int{}
	scanned := 0
	for scanned < sampleSize {
		n := int32(sampleSize - scanned)
		if n > scanPageSize {
			n = scanPageSize
		}
		rows, err := t.gw.ScannerGetList(ctx, id, n)
		if err != nil {
			return nil, scanned, errors.Wrap(err, "scanning devices")
		}
		if len(rows) == 0 {
			break
		}
		for _, r := range rows {
			scanned++
			device := cellString(r, ColDeviceType)
			if device == "" {
				device = "unknown"
			}
			counts[device]++
		}
	}

	out := make([]DeviceCount, 0, len(counts))
	for device, n := range counts {
		out = append(out, DeviceCount{Device: device, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Device < out[j].Device
	})
	return out, scanned, nil
}
