package service

import (
	"encoding/json"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herosearch/internal/metrics"
	"herosearch/internal/model"
)

func decodeRecords(t *testing.T, payload string) []model.RawRecord {
	t.Helper()
	var records []model.RawRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &records))
	return records
}

func newTestNormalizer() *Normalizer {
	return NewNormalizer(rand.New(rand.NewSource(42)), nil)
}

func TestNormalizer_PropertyExample(t *testing.T) {
	records := decodeRecords(t, `[{"source_table":"Property","id":1,"title":"Villa","images":"http://x.jpg","price":200000,"city":"Nice"}]`)

	items := newTestNormalizer().Normalize(records)

	out, err := json.Marshal(items)
	require.NoError(t, err)
	assert.JSONEq(t, `[{
		"id": 1,
		"title": "Villa",
		"image": "http://x.jpg",
		"price": 200000,
		"location": "Nice",
		"route": "/immobilier/1",
		"type": "PROPERTY",
		"source_table": "Property"
	}]`, string(out))
}

func TestNormalizer_KindTable(t *testing.T) {
	records := decodeRecords(t, `[
		{"source_table":"Product","id":7,"name":"Chaise","slug":"chaise-bois","images":["http://p.jpg"],"price":"49.9"},
		{"source_table":"Product","id":8,"title":"Table","images":"http://t.jpg"},
		{"source_table":"BlogArticle","id":3,"title":"Acheter à Lyon","coverUrl":"https://c.jpg","images":"http://ignored.jpg"},
		{"source_table":"BlogArticle","id":4,"title":"Sans slug","images":"{http://b1.jpg,http://b2.jpg}"},
		{"source_table":"Service","id":5,"libelle":"Ménage","images":"http://s.jpg","city":"Lyon"},
		{"source_table":"Metier","id":6,"libelle":"Plombier","images":"http://m.jpg"},
		{"source_table":"Annonce","id":9,"name":"Vélo","images":"http://o.jpg"}
	]`)

	items := newTestNormalizer().Normalize(records)
	require.Len(t, items, len(records))

	tests := []struct {
		title, image, route, typ string
	}{
		{"Chaise", "http://p.jpg", "/produits/chaise-bois", TypeProduct},
		{"Table", "http://t.jpg", "/produits/8", TypeProduct},
		{"Acheter à Lyon", "https://c.jpg", "/blog/3", TypeArticle},
		{"Sans slug", "http://b1.jpg", "/blog/4", TypeArticle},
		{"Ménage", "http://s.jpg", "/services", TypeService},
		{"Plombier", "", "/professionnels", TypeMetier},
		{"Vélo", "http://o.jpg", "/", ""},
	}
	for i, tt := range tests {
		assert.Equal(t, tt.title, items[i].Title, "title %d", i)
		assert.Equal(t, tt.image, items[i].Image, "image %d", i)
		assert.Equal(t, tt.route, items[i].Route, "route %d", i)
		assert.Equal(t, tt.typ, items[i].Type, "type %d", i)
		assert.Equal(t, string(records[i].SourceTable), items[i].SourceTable, "source_table %d", i)
	}

	require.NotNil(t, items[0].Price)
	assert.InDelta(t, 49.9, *items[0].Price, 1e-9)
	assert.Equal(t, "Lyon", items[4].Location)
}

func TestNormalizer_MetierNeverHasImage(t *testing.T) {
	records := decodeRecords(t, `[
		{"source_table":"Metier","libelle":"Électricien","images":"http://m.jpg"},
		{"source_table":"Metier","name":"Peintre"},
		{"source_table":"Metier","images":["https://a.jpg","https://b.jpg"]}
	]`)

	for _, item := range newTestNormalizer().Normalize(records) {
		assert.Empty(t, item.Image)
		assert.Equal(t, "/professionnels", item.Route)
	}
}

func TestNormalizer_FallbackImages(t *testing.T) {
	records := decodeRecords(t, `[
		{"source_table":"Property","id":1},
		{"source_table":"Product","id":2,"images":"not a url"},
		{"source_table":"BlogArticle","id":3,"coverUrl":"/local.jpg"},
		{"source_table":"Service","images":[]},
		{"source_table":"Whatever","images":{"url":"http://x.jpg"}}
	]`)

	n := newTestNormalizer()
	for i := 0; i < 20; i++ {
		for _, item := range n.Normalize(records) {
			assert.Contains(t, FallbackImages[:], item.Image)
		}
	}
}

func TestNormalizer_SeededRandomIsDeterministic(t *testing.T) {
	records := decodeRecords(t, `[{"source_table":"Property","id":1},{"source_table":"Product","id":2},{"source_table":"Service"}]`)

	a := NewNormalizer(rand.New(rand.NewSource(7)), nil).Normalize(records)
	b := NewNormalizer(rand.New(rand.NewSource(7)), nil).Normalize(records)
	assert.Equal(t, a, b)
}

func TestNormalizer_GenericAndMissingFields(t *testing.T) {
	records := decodeRecords(t, `[
		{"source_table":"Inconnu"},
		{},
		{"source_table":"Property","title":"   "},
		{"source_table":"Product"}
	]`)

	items := newTestNormalizer().Normalize(records)

	assert.Equal(t, "Élément", items[0].Title)
	assert.Equal(t, "/", items[0].Route)
	assert.Equal(t, "Élément", items[1].Title)
	assert.Equal(t, "", items[1].SourceTable)
	assert.Equal(t, "Bien immobilier", items[2].Title)
	assert.Equal(t, "/immobilier", items[2].Route)
	assert.Equal(t, "/produits", items[3].Route)
	for _, item := range items {
		assert.NotEmpty(t, item.Route)
	}
}

func TestNormalizer_SimilarityPassthrough(t *testing.T) {
	records := decodeRecords(t, `[{"source_table":"Service","name":"Jardinage","similarity":0.91}]`)

	items := newTestNormalizer().Normalize(records)
	require.NotNil(t, items[0].Similarity)
	assert.InDelta(t, 0.91, *items[0].Similarity, 1e-9)
}

func TestNormalizer_EmptyInput(t *testing.T) {
	items := newTestNormalizer().Normalize(nil)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestNormalizer_ConcurrentUse(t *testing.T) {
	records := decodeRecords(t, `[{"source_table":"Property","id":1},{"source_table":"Product","id":2},{"source_table":"Service"}]`)

	for name, n := range map[string]*Normalizer{
		"default source": NewNormalizer(nil, nil),
		"seeded source":  newTestNormalizer(),
	} {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for g := 0; g < 16; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 500; i++ {
						for _, item := range n.Normalize(records) {
							assert.Contains(t, FallbackImages[:], item.Image)
						}
					}
				}()
			}
			wg.Wait()
		})
	}
}

func TestNormalizer_MetricsUseFixedKinds(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(metrics.WithRegisterer(reg))
	n := NewNormalizer(rand.New(rand.NewSource(1)), m)

	n.Normalize(decodeRecords(t, `[
		{"source_table":"Property","id":1,"images":"http://x.jpg"},
		{"source_table":"Annonce","name":"Vélo"},
		{"source_table":"Inconnu-12345"},
		{"source_table":"Metier","libelle":"Plombier"}
	]`))

	expected := `
# HELP hero_search_normalized_items_total Normalized search items by source table.
# TYPE hero_search_normalized_items_total counter
hero_search_normalized_items_total{source_table="Metier"} 1
hero_search_normalized_items_total{source_table="Property"} 1
hero_search_normalized_items_total{source_table="other"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "hero_search_normalized_items_total"))
}

func TestNormalizer_BlankTitleFallsThrough(t *testing.T) {
	records := decodeRecords(t, `[
		{"source_table":"Annonce","title":"","name":"Vélo"},
		{"source_table":"Annonce","title":" ","name":"","libelle":"Lot"},
		{"source_table":"Annonce","title":"","name":"","libelle":""}
	]`)

	items := newTestNormalizer().Normalize(records)
	assert.Equal(t, "Vélo", items[0].Title)
	assert.Equal(t, "Lot", items[1].Title)
	assert.Equal(t, "Élément", items[2].Title)
}
