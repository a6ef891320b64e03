package database

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/claresloggett/nightscout-backup/internal/model"
)

// InfluxDB optionally loads the BGL entries into a time-series bucket while
// the archives are being written, so the backup doubles as a dashboard
// backfill.
type InfluxDB struct {
	Client   influxdb2.Client
	WriteAPI api.WriteAPIBlocking
}

// tag fields: low-cardinality strings that identify the sensor
var entryTagFields = map[string]struct{}{
	"device": {},
	"type":   {},
}

func NewInfluxDB(url, token, org, bucket string) *InfluxDB {
	client := influxdb2.NewClient(url, token)
	return &InfluxDB{
		Client:   client,
		WriteAPI: client.WriteAPIBlocking(org, bucket),
	}
}

func (db *InfluxDB) Close() {
	if db != nil && db.Client != nil {
		db.Client.Close()
	}
}

// WriteEntries converts each entry record into one point of the measurement.
// The point time comes from the dateField; entries without a parseable
// timestamp are an error, since an unstamped point would silently land at
// the wrong time.
func (db *InfluxDB) WriteEntries(ctx context.Context, measurement, dateField string, entries []*model.Record) error {
	for _, rec := range entries {
		point, err := buildPoint(measurement, dateField, rec)
		if err != nil {
			return err
		}
		if err := db.WriteAPI.WritePoint(ctx, point); err != nil {
			return err
		}
	}
	return nil
}

func buildPoint(measurement, dateField string, rec *model.Record) (*write.Point, error) {
	ts, err := entryTime(rec, dateField)
	if err != nil {
		return nil, err
	}

	tags := make(map[string]string)
	fields := make(map[string]interface{})
	for _, k := range rec.Keys() {
		if k == dateField {
			continue
		}
		v, _ := rec.Get(k)
		if s, ok := v.(string); ok {
			if _, isTag := entryTagFields[k]; isTag {
				tags[k] = s
				continue
			}
		}
		if fv, ok := normalizeFieldValue(v); ok {
			fields[sanitizeFieldKey(k)] = fv
		}
	}
	return write.NewPoint(measurement, tags, fields, ts), nil
}

func entryTime(rec *model.Record, dateField string) (time.Time, error) {
	if s, ok := rec.StringField(dateField); ok {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
	}
	// entries also carry an epoch-millis "date" field
	if v, ok := rec.Get("date"); ok {
		if n, ok := v.(json.Number); ok {
			if ms, err := n.Int64(); err == nil {
				return time.UnixMilli(ms).UTC(), nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("entry has no parseable %s timestamp", dateField)
}

func normalizeFieldValue(v interface{}) (interface{}, bool) {
	switch x := v.(type) {
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f, true
		}
		return x.String(), true
	case float64:
		return x, true
	case bool:
		return x, true
	case string:
		return x, true
	default:
		// nested objects/arrays are not representable as Influx fields
		return nil, false
	}
}

var fieldKeyRe = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

func sanitizeFieldKey(k string) string {
	k = strings.TrimSpace(k)
	k = strings.ReplaceAll(k, " ", "_")
	k = fieldKeyRe.ReplaceAllString(k, "_")
	k = strings.Trim(k, "_")
	if k == "" {
		return "field"
	}
	return k
}
