package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is one JSON object from the Nightscout API, decoded with its wire
// key order preserved. Column order in the output archives follows the order
// in which fields are first observed, so the decode cannot go through a plain
// map. Numbers are kept as json.Number to avoid float round-tripping in the
// archives.
type Record struct {
	keys   []string
	fields map[string]any
}

func NewRecord() *Record {
	return &Record{fields: make(map[string]any)}
}

func (r *Record) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected JSON object, got %v", tok)
	}

	r.keys = r.keys[:0]
	r.fields = make(map[string]any)
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("record: expected object key, got %v", kt)
		}
		var val any
		if err := dec.Decode(&val); err != nil {
			return err
		}
		if _, dup := r.fields[key]; !dup {
			r.keys = append(r.keys, key)
		}
		r.fields[key] = val
	}
	// closing '}'
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalJSON re-serializes the record in its original key order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.fields[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Record) Get(key string) (any, bool) {
	v, ok := r.fields[key]
	return v, ok
}

func (r *Record) Has(key string) bool {
	_, ok := r.fields[key]
	return ok
}

// Set assigns a field, registering the key at the end of the order if new.
func (r *Record) Set(key string, v any) {
	if r.fields == nil {
		r.fields = make(map[string]any)
	}
	if _, ok := r.fields[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.fields[key] = v
}

func (r *Record) Delete(key string) {
	if _, ok := r.fields[key]; !ok {
		return
	}
	delete(r.fields, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the field names in wire order. The returned slice is shared;
// callers must not mutate it.
func (r *Record) Keys() []string {
	return r.keys
}

func (r *Record) Len() int {
	return len(r.fields)
}

// StringField returns the value of a field that is expected to hold a string
// (e.g. the pagination timestamp).
func (r *Record) StringField(key string) (string, bool) {
	v, ok := r.fields[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Fingerprint returns a canonical serialization of the record used for
// structural-equality dedup. encoding/json sorts map keys, so two records with
// the same fields in different wire order fingerprint identically.
func (r *Record) Fingerprint() string {
	b, err := json.Marshal(r.fields)
	if err != nil {
		// only reachable with non-JSON values injected via Set
		return fmt.Sprintf("!err:%v", err)
	}
	return string(b)
}

// DecodePage decodes one API response page (a JSON array of objects).
func DecodePage(b []byte) ([]*Record, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return nil, fmt.Errorf("page decode: %w", err)
	}
	records := make([]*Record, 0, len(raws))
	for i, raw := range raws {
		rec := NewRecord()
		if err := json.Unmarshal(raw, rec); err != nil {
			return nil, fmt.Errorf("page decode: record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
