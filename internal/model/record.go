package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// SourceTable identifies the backend entity a raw search record came from
type SourceTable int

const (
	SourceOther SourceTable = iota
	SourceProperty
	SourceProduct
	SourceBlogArticle
	SourceService
	SourceMetier
)

var sourceTableNames = map[SourceTable]string{
	SourceProperty:    "Property",
	SourceProduct:     "Product",
	SourceBlogArticle: "BlogArticle",
	SourceService:     "Service",
	SourceMetier:      "Metier",
}

// ParseSourceTable maps a source_table tag to its kind. Unknown tags are SourceOther.
func ParseSourceTable(tag string) SourceTable {
	for kind, name := range sourceTableNames {
		if name == strings.TrimSpace(tag) {
			return kind
		}
	}
	return SourceOther
}

// String returns the wire tag of the kind
func (s SourceTable) String() string {
	if name, ok := sourceTableNames[s]; ok {
		return name
	}
	return "other"
}

// RawRecord is one entry of the /recherche results array.
// No shared schema is enforced upstream, so every field is optional.
// A field of the wrong type only blanks that field.
type RawRecord struct {
	SourceTable FlexString      `json:"source_table"`
	ID          RecordID        `json:"id"`
	Title       FlexString      `json:"title,omitempty"`
	Name        FlexString      `json:"name,omitempty"`
	Libelle     FlexString      `json:"libelle,omitempty"`
	Images      json.RawMessage `json:"images,omitempty"`
	CoverURL    FlexString      `json:"coverUrl,omitempty"`
	Price       FlexFloat       `json:"price,omitempty"`
	City        FlexString      `json:"city,omitempty"`
	Slug        FlexString      `json:"slug,omitempty"`
	Similarity  FlexFloat       `json:"similarity,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler. Entries that are not objects
// decode as an empty record.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		*r = RawRecord{}
		return nil
	}
	type plain RawRecord
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = RawRecord(p)
	return nil
}

// Kind returns the parsed source_table of the record
func (r RawRecord) Kind() SourceTable {
	return ParseSourceTable(string(r.SourceTable))
}

// ImagesValue decodes the images field into a generic JSON value.
// Anything that is not valid JSON is handed back as a plain string.
func (r RawRecord) ImagesValue() any {
	raw := bytes.TrimSpace(r.Images)
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

// RecordID accepts JSON numbers and strings
type RecordID string

// UnmarshalJSON implements json.Unmarshaler
func (id *RecordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RecordID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		// ids of an unexpected shape are dropped rather than failing the whole response
		*id = ""
		return nil
	}
	*id = RecordID(n.String())
	return nil
}

// MarshalJSON writes integral ids as numbers and everything else as strings
func (id RecordID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Scan implements sql.Scanner interface
func (id *RecordID) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*id = ""
	case []byte:
		*id = RecordID(v)
	case string:
		*id = RecordID(v)
	case int64:
		*id = RecordID(strconv.FormatInt(v, 10))
	default:
		*id = ""
	}
	return nil
}

// FlexString is a text field that also accepts numbers.
// Booleans, objects and arrays decode as empty.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (s *FlexString) UnmarshalJSON(data []byte) error {
	*s = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch {
	case data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return nil
		}
		*s = FlexString(v)
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil
		}
		*s = FlexString(n.String())
	}
	return nil
}

// FlexFloat is an optional number that also accepts numeric strings
type FlexFloat struct {
	Value float64
	Valid bool
}

// NewFlexFloat returns a present value
func NewFlexFloat(v float64) FlexFloat {
	return FlexFloat{Value: v, Valid: true}
}

// Ptr returns nil when absent
func (f FlexFloat) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// UnmarshalJSON implements json.Unmarshaler. Unparseable values become absent.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	*f = FlexFloat{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*f = NewFlexFloat(v)
	return nil
}

// MarshalJSON implements json.Marshaler
func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Scan implements sql.Scanner interface
func (f *FlexFloat) Scan(value interface{}) error {
	*f = FlexFloat{}
	switch v := value.(type) {
	case float64:
		*f = NewFlexFloat(v)
	case int64:
		*f = NewFlexFloat(float64(v))
	case []byte:
		if parsed, err := strconv.ParseFloat(string(v), 64); err == nil {
			*f = NewFlexFloat(parsed)
		}
	case string:
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			*f = NewFlexFloat(parsed)
		}
	}
	return nil
}
