package service

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"herosearch/internal/metrics"
	"herosearch/internal/model"
	"herosearch/internal/utils"
)

// FallbackImages are used when a record carries no usable image
var FallbackImages = [3]string{
	"https://images.unsplash.com/photo-1560518883-ce09059eeffa?w=800",
	"https://images.unsplash.com/photo-1556761175-b413da4baf72?w=800",
	"https://images.unsplash.com/photo-1521791136064-7986c2920216?w=800",
}

// Item types
const (
	TypeProperty = "PROPERTY"
	TypeProduct  = "PRODUCT"
	TypeArticle  = "ARTICLE"
	TypeService  = "SERVICE"
	TypeMetier   = "METIER"
)

// RandomSource picks the fallback image. *rand.Rand satisfies it.
type RandomSource interface {
	Intn(n int) int
}

// Normalizer maps raw /recherche records into SearchItem values
type Normalizer struct {
	random  RandomSource
	metrics *metrics.Metrics
}

// lockedRandom serializes access to a source shared by request goroutines
type lockedRandom struct {
	mu     sync.Mutex
	source RandomSource
}

func (l *lockedRandom) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.source.Intn(n)
}

// NewNormalizer creates a normalizer that is safe for concurrent use.
// A nil random source is replaced by a time-seeded one.
func NewNormalizer(random RandomSource, m *metrics.Metrics) *Normalizer {
	if random == nil {
		random = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Normalizer{
		random:  &lockedRandom{source: random},
		metrics: m,
	}
}

// Normalize converts records in order. It never fails: missing or malformed
// fields degrade to defaults.
func (n *Normalizer) Normalize(records []model.RawRecord) []model.SearchItem {
	items := make([]model.SearchItem, 0, len(records))
	for _, record := range records {
		items = append(items, n.NormalizeOne(record))
	}
	return items
}

// NormalizeOne converts a single record
func (n *Normalizer) NormalizeOne(r model.RawRecord) model.SearchItem {
	item := model.SearchItem{
		ID:          r.ID,
		SourceTable: string(r.SourceTable),
		Similarity:  r.Similarity.Ptr(),
	}

	images := r.ImagesValue()

	switch r.Kind() {
	case model.SourceProperty:
		item.Title = firstText("Bien immobilier", r.Title, r.Name, r.Libelle)
		item.Image = utils.ResolveImageURL(images)
		item.Route = routeWithKey("/immobilier", string(r.ID))
		item.Type = TypeProperty
		item.Price = r.Price.Ptr()
		item.Location = text(r.City)
	case model.SourceProduct:
		item.Title = firstText("Produit", r.Name, r.Title, r.Libelle)
		item.Image = utils.ResolveImageURL(images)
		item.Route = routeWithKey("/produits", slugOrID(r))
		item.Type = TypeProduct
		item.Price = r.Price.Ptr()
		item.Location = text(r.City)
	case model.SourceBlogArticle:
		item.Title = firstText("Article", r.Title, r.Name)
		item.Image = utils.ResolveImageURL(text(r.CoverURL))
		if item.Image == "" {
			item.Image = utils.ResolveImageURL(images)
		}
		item.Route = routeWithKey("/blog", slugOrID(r))
		item.Type = TypeArticle
	case model.SourceService:
		item.Title = firstText("Service", r.Name, r.Libelle, r.Title)
		item.Image = utils.ResolveImageURL(images)
		item.Route = "/services"
		item.Type = TypeService
		item.Price = r.Price.Ptr()
		item.Location = text(r.City)
	case model.SourceMetier:
		item.Title = firstText("Métier", r.Libelle, r.Name, r.Title)
		item.Route = "/professionnels"
		item.Type = TypeMetier
		n.metrics.ObserveNormalized(r.Kind().String(), false)
		return item
	case model.SourceOther:
		genericItem(&item, r, images)
	default:
		// a kind added to model without a mapping here is shown as a generic item
		genericItem(&item, r, images)
	}

	fallback := item.Image == ""
	if fallback {
		item.Image = FallbackImages[n.random.Intn(len(FallbackImages))]
	}
	n.metrics.ObserveNormalized(r.Kind().String(), fallback)

	return item
}

func genericItem(item *model.SearchItem, r model.RawRecord, images any) {
	item.Title = firstText("Élément", r.Title, r.Name, r.Libelle)
	item.Image = utils.ResolveImageURL(images)
	item.Route = "/"
	item.Price = r.Price.Ptr()
	item.Location = text(r.City)
}

// firstText returns the first non-blank candidate. Blank strings fall through
// like missing ones so an item never shows an empty title.
func firstText(def string, candidates ...model.FlexString) string {
	for _, c := range candidates {
		if v := text(c); v != "" {
			return v
		}
	}
	return def
}

func text(s model.FlexString) string {
	return strings.TrimSpace(string(s))
}

func slugOrID(r model.RawRecord) string {
	if slug := text(r.Slug); slug != "" {
		return slug
	}
	return string(r.ID)
}

// routeWithKey joins base and key, keeping base alone when the key is missing
func routeWithKey(base, key string) string {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return base
	}
	return base + "/" + key
}
