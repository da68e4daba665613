// Package alias resolves brand and generic drug names.
//
// Generic→brand picks the most recognizable brand among the candidates
// returned by the terminology service and remembers the choice in a
// persistent cache. Brand→generic uses a small curated table first, then
// the terminology service. Both directions degrade to a best-effort name
// when the service is unavailable.
package alias

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/absorpgen/absorpgen-api/catalogparser/entities"
	"github.com/absorpgen/absorpgen-api/interfaces"
	"github.com/absorpgen/absorpgen-api/logging"
	"github.com/absorpgen/absorpgen-api/metrics"
)

// Compile-time check to ensure Resolver implements BrandResolver interface
var _ interfaces.BrandResolver = (*Resolver)(nil)

// PriorityBrands win over any other candidate, in this order
var PriorityBrands = []string{"Tylenol", "Advil", "Motrin", "Aleve", "Benadryl", "Claritin"}

var pediatricMarkers = []string{"infant", "child", "kids"}

// knownGenerics maps well-known OTC brands to their active ingredient
var knownGenerics = map[string]string{
	"tylenol":    "ACETAMINOPHEN",
	"advil":      "IBUPROFEN",
	"robitussin": "DEXTROMETHORPHAN",
	"minipress":  "PRAZOSIN",
	"cardura":    "DOXAZOSIN",
	"hytrin":     "TERAZOSIN",
	"cipro":      "CIPROFLOXACIN",
	"coumadin":   "WARFARIN",
	"nyquil":     "DEXTROMETHORPHAN",
	"nyquill":    "DEXTROMETHORPHAN",
}

// TerminologyService is the subset of the RxNorm client used here
type TerminologyService interface {
	BrandNames(ctx context.Context, name string) ([]string, error)
	GenericName(ctx context.Context, brand string) (string, error)
}

// Cache stores generic→brand choices keyed by lowercase generic name
type Cache interface {
	Get(generic string) (string, bool)
	Put(generic, brand string) error
}

// Resolver implements brand/generic resolution
type Resolver struct {
	service TerminologyService
	cache   Cache
}

// NewResolver wires a terminology service and a cache; either may be nil
func NewResolver(service TerminologyService, cache Cache) *Resolver {
	return &Resolver{service: service, cache: cache}
}

// MostCommonBrand returns the brand to show for a generic name.
// Cache hits skip the terminology service. Service failures return the
// capitalized generic name and are not cached.
func (r *Resolver) MostCommonBrand(ctx context.Context, generic string) string {
	generic = strings.TrimSpace(generic)
	if generic == "" {
		return ""
	}
	key := strings.ToLower(generic)

	if r.cache != nil {
		if brand, ok := r.cache.Get(key); ok {
			metrics.BrandCacheLookupsTotal.WithLabelValues("hit").Inc()
			return brand
		}
		metrics.BrandCacheLookupsTotal.WithLabelValues("miss").Inc()
	}

	if r.service == nil {
		return Capitalize(generic)
	}

	candidates, err := r.service.BrandNames(ctx, key)
	if err != nil {
		logging.Warn("Brand lookup failed, using generic name", "generic", generic, "error", err)
		return Capitalize(generic)
	}

	brand := ChooseBrand(candidates, generic)
	if r.cache != nil {
		if err := r.cache.Put(key, brand); err != nil {
			logging.Warn("Failed to persist brand alias", "generic", key, "brand", brand, "error", err)
		}
	}
	return brand
}

// GenericFromBrand returns the canonical generic name for a brand.
// Unknown brands and service failures return the uppercased input.
func (r *Resolver) GenericFromBrand(ctx context.Context, brand string) string {
	brand = strings.TrimSpace(brand)
	if generic, ok := knownGenerics[strings.ToLower(brand)]; ok {
		return generic
	}
	if brand == "" || r.service == nil {
		return entities.CanonicalName(brand)
	}

	generic, err := r.service.GenericName(ctx, brand)
	if err != nil {
		logging.Warn("Generic lookup failed, using input name", "brand", brand, "error", err)
		return entities.CanonicalName(brand)
	}
	if strings.TrimSpace(generic) == "" {
		return entities.CanonicalName(brand)
	}
	return entities.CanonicalName(generic)
}

// ChooseBrand applies the selection policy to the service's candidates:
// a priority brand if present, else the first non-pediatric candidate,
// else the first candidate, else the capitalized generic name.
func ChooseBrand(candidates []string, generic string) string {
	for _, priority := range PriorityBrands {
		for _, c := range candidates {
			if c == priority {
				return priority
			}
		}
	}

	for _, c := range candidates {
		if !isPediatric(c) {
			return c
		}
	}

	if len(candidates) > 0 {
		return candidates[0]
	}
	return Capitalize(generic)
}

func isPediatric(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range pediatricMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Capitalize upper-cases the first letter and lower-cases the rest
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + strings.ToLower(s[size:])
}
