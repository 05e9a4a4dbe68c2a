package notes

import (
	"fmt"
	"math"
	"time"
)

// Document is the untyped shape the remote store reads and writes.
type Document map[string]any

// Document field names shared by every Store implementation.
const (
	FieldID        = "id"
	FieldTitle     = "title"
	FieldText      = "text"
	FieldCreator   = "creator"
	FieldUpdatedAt = "updated_at"
	FieldPinnedAt  = "pinned_at"
)

// timeAccessor is implemented by store-native timestamp types such as bson.DateTime.
type timeAccessor interface {
	Time() time.Time
}

// ParseDocument validates and coerces a raw store document into a Note.
// Malformed documents fail; they never produce a partially typed Note.
func ParseDocument(doc Document) (Note, error) {
	var n Note
	var err error

	if n.ID, err = stringField(doc, FieldID, true); err != nil {
		return Note{}, err
	}
	if n.Title, err = stringField(doc, FieldTitle, false); err != nil {
		return Note{}, err
	}
	if n.Text, err = stringField(doc, FieldText, false); err != nil {
		return Note{}, err
	}
	if n.Creator, err = stringField(doc, FieldCreator, true); err != nil {
		return Note{}, err
	}

	updatedAt, err := timeField(doc, FieldUpdatedAt)
	if err != nil {
		return Note{}, err
	}
	if updatedAt == nil {
		return Note{}, fmt.Errorf("field %q is missing", FieldUpdatedAt)
	}
	n.UpdatedAt = *updatedAt

	if n.PinnedAt, err = timeField(doc, FieldPinnedAt); err != nil {
		return Note{}, err
	}

	return n, nil
}

// toDocument builds the write-side representation of n. The id is not part of
// the body: stores address documents by key.
func toDocument(n Note) Document {
	doc := Document{
		FieldTitle:     n.Title,
		FieldText:      n.Text,
		FieldCreator:   n.Creator,
		FieldUpdatedAt: n.UpdatedAt.UTC(),
		FieldPinnedAt:  nil,
	}
	if n.PinnedAt != nil {
		doc[FieldPinnedAt] = n.PinnedAt.UTC()
	}
	return doc
}

func stringField(doc Document, key string, required bool) (string, error) {
	raw, ok := doc[key]
	if !ok || raw == nil {
		if required {
			return "", fmt.Errorf("field %q is missing", key)
		}
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("field %q: expected string, got %T", key, raw)
	}
	if required && s == "" {
		return "", fmt.Errorf("field %q is empty", key)
	}
	return s, nil
}

// Numeric timestamps must land in years 0-9999, the range RFC 3339 can encode.
var (
	minUnixMilli = float64(time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli())
	maxUnixMilli = float64(time.Date(9999, 12, 31, 23, 59, 59, 999e6, time.UTC).UnixMilli())
)

func unixMillis(key string, ms int64) (*time.Time, error) {
	if f := float64(ms); f < minUnixMilli || f > maxUnixMilli {
		return nil, fmt.Errorf("field %q: unix millis %d out of range", key, ms)
	}
	t := time.UnixMilli(ms).UTC()
	return &t, nil
}

// timeField returns nil for an absent or null value.
func timeField(doc Document, key string) (*time.Time, error) {
	raw, ok := doc[key]
	if !ok || raw == nil {
		return nil, nil
	}

	var t time.Time
	switch v := raw.(type) {
	case time.Time:
		t = v
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		t = *v
	case timeAccessor:
		t = v.Time()
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		t = parsed
	case int:
		return unixMillis(key, int64(v))
	case int64:
		return unixMillis(key, v)
	case int32:
		return unixMillis(key, int64(v))
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v < minUnixMilli || v > maxUnixMilli {
			return nil, fmt.Errorf("field %q: unix millis %v out of range", key, v)
		}
		return unixMillis(key, int64(v))
	default:
		return nil, fmt.Errorf("field %q: unsupported timestamp type %T", key, raw)
	}

	t = t.UTC()
	return &t, nil
}
