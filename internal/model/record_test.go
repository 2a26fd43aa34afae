package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawRecord_DecodesLooseShapes(t *testing.T) {
	payload := `[
		{"source_table":"Property","id":1,"title":"Villa","images":"http://x.jpg","price":200000,"city":"Nice"},
		{"source_table":"Product","id":"a1b2","name":"Chaise","images":["http://a.jpg"],"price":"49.90","slug":"chaise"},
		{"source_table":"Metier","id":null,"libelle":"Plombier","price":"n/a"}
	]`

	var records []RawRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &records))
	require.Len(t, records, 3)

	assert.Equal(t, SourceProperty, records[0].Kind())
	assert.Equal(t, RecordID("1"), records[0].ID)
	assert.Equal(t, "http://x.jpg", records[0].ImagesValue())
	assert.Equal(t, 200000.0, *records[0].Price.Ptr())

	assert.Equal(t, SourceProduct, records[1].Kind())
	assert.Equal(t, RecordID("a1b2"), records[1].ID)
	assert.Equal(t, []any{"http://a.jpg"}, records[1].ImagesValue())
	assert.InDelta(t, 49.90, records[1].Price.Value, 1e-9)

	assert.Equal(t, SourceMetier, records[2].Kind())
	assert.Equal(t, RecordID(""), records[2].ID)
	assert.Nil(t, records[2].Price.Ptr())
	assert.Nil(t, records[2].ImagesValue())
}

func TestRawRecord_WrongTypedFieldsStayLocal(t *testing.T) {
	payload := `[
		{"source_table":"Property","id":1,"title":"Villa","city":"Nice"},
		{"source_table":"Product","id":2,"name":"Chaise","city":75001,"slug":12,"title":5},
		{"source_table":true,"name":{"fr":"Vélo"},"libelle":["x"],"coverUrl":false},
		null,
		"garbage",
		42
	]`

	var records []RawRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &records))
	require.Len(t, records, 6)

	assert.Equal(t, FlexString("Villa"), records[0].Title)
	assert.Equal(t, FlexString("Nice"), records[0].City)

	assert.Equal(t, FlexString("Chaise"), records[1].Name)
	assert.Equal(t, FlexString("75001"), records[1].City)
	assert.Equal(t, FlexString("12"), records[1].Slug)
	assert.Equal(t, FlexString("5"), records[1].Title)

	assert.Equal(t, SourceOther, records[2].Kind())
	assert.Empty(t, records[2].SourceTable)
	assert.Empty(t, records[2].Name)
	assert.Empty(t, records[2].Libelle)
	assert.Empty(t, records[2].CoverURL)

	for _, r := range records[3:] {
		assert.Equal(t, RawRecord{}, r)
	}
}

func TestFlexString_Unmarshal(t *testing.T) {
	tests := []struct {
		input string
		want  FlexString
	}{
		{`"Nice"`, "Nice"},
		{`""`, ""},
		{`75001`, "75001"},
		{`-1.5`, "-1.5"},
		{`null`, ""},
		{`true`, ""},
		{`{"a":1}`, ""},
		{`["a"]`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var s FlexString
			require.NoError(t, json.Unmarshal([]byte(tt.input), &s))
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestParseSourceTable(t *testing.T) {
	tests := map[string]SourceTable{
		"Property":    SourceProperty,
		"Product":     SourceProduct,
		"BlogArticle": SourceBlogArticle,
		"Service":     SourceService,
		"Metier":      SourceMetier,
		"metier":      SourceOther,
		"Annonce":     SourceOther,
		"":            SourceOther,
	}
	for tag, want := range tests {
		assert.Equal(t, want, ParseSourceTable(tag), tag)
	}
}

func TestRecordID_Marshal(t *testing.T) {
	out, err := json.Marshal([]RecordID{"1", "a1b2", ""})
	require.NoError(t, err)
	assert.JSONEq(t, `[1, "a1b2", null]`, string(out))
}
