package catalog

import (
	"context"
	"strings"

	"github.com/absorpgen/absorpgen-api/catalogparser/entities"
	"github.com/absorpgen/absorpgen-api/logging"
	"golang.org/x/text/unicode/norm"
)

// GenericNormalizer maps a brand name to its generic name.
// Implementations must not fail: unknown brands come back unchanged.
type GenericNormalizer interface {
	GenericFromBrand(ctx context.Context, brand string) string
}

// Resolver resolves drug names against a single snapshot
type Resolver struct {
	snapshot *Snapshot
	aliases  GenericNormalizer
}

// NewResolver binds a snapshot to an optional brand normalizer
func NewResolver(snapshot *Snapshot, aliases GenericNormalizer) *Resolver {
	if snapshot == nil {
		snapshot = EmptySnapshot()
	}
	return &Resolver{snapshot: snapshot, aliases: aliases}
}

// Snapshot returns the snapshot this resolver reads
func (r *Resolver) Snapshot() *Snapshot {
	return r.snapshot
}

// NormalizeName trims and NFKC-normalizes free text input
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(name)), " ")
}

// Resolve returns the DrugRecord for a drug or brand name.
// Names already present in the catalog skip brand normalization.
func (r *Resolver) Resolve(ctx context.Context, name string) (entities.DrugRecord, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return entities.DrugRecord{}, &DrugNotFoundError{Name: name}
	}

	key := entities.CanonicalName(normalized)
	if !r.snapshot.Contains(key) && r.aliases != nil {
		generic := entities.CanonicalName(r.aliases.GenericFromBrand(ctx, normalized))
		if generic != "" && generic != key {
			logging.Debug("Brand normalized to generic", "input", normalized, "generic", generic)
			key = generic
		}
	}

	record, ok := r.snapshot.Lookup(key)
	if !ok {
		return entities.DrugRecord{}, &DrugNotFoundError{Name: normalized}
	}
	return record, nil
}

// SuggestAlternative delegates to the snapshot
func (r *Resolver) SuggestAlternative(minBioavailability float64, exclude ...string) (entities.DrugRecord, error) {
	return r.snapshot.SuggestAlternative(minBioavailability, exclude...)
}

// SearchBySymptom delegates to the snapshot
func (r *Resolver) SearchBySymptom(symptom string) (entities.DrugRecord, bool) {
	return r.snapshot.SearchBySymptom(symptom)
}
