// Package catalog indexes the loaded drug tables and resolves free-text
// drug names against them, curated entries first.
package catalog

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/absorpgen/absorpgen-api/catalogparser/entities"
)

// OTCPriority lists the over-the-counter drugs preferred by symptom search
var OTCPriority = []string{"ACETAMINOPHEN", "IBUPROFEN", "NAPROXEN", "ASPIRIN", "DIPHENHYDRAMINE", "LORATADINE"}

// Snapshot is one immutable load of the catalog.
// It is safe for concurrent use; reloads build a new Snapshot.
type Snapshot struct {
	curated        map[string]entities.DrugRecord
	reference      map[string]entities.DrugRecord
	curatedOrder   []string
	referenceOrder []string
	indications    map[string][]string
	indicationRows []entities.IndicationRow
	loadedAt       time.Time
}

// NewSnapshot indexes raw catalog tables
func NewSnapshot(tables *entities.CatalogTables) *Snapshot {
	s := &Snapshot{
		curated:     make(map[string]entities.DrugRecord),
		reference:   make(map[string]entities.DrugRecord),
		indications: make(map[string][]string),
		loadedAt:    time.Now(),
	}
	if tables == nil {
		return s
	}

	for _, d := range tables.Curated {
		if _, exists := s.curated[d.Name]; exists {
			continue
		}
		s.curated[d.Name] = d
		s.curatedOrder = append(s.curatedOrder, d.Name)
	}

	// First qualifying row wins for duplicate reference names
	for _, d := range tables.Reference {
		if _, exists := s.reference[d.Name]; exists {
			continue
		}
		s.reference[d.Name] = d
		s.referenceOrder = append(s.referenceOrder, d.Name)
	}

	s.indicationRows = tables.Indications
	for _, row := range tables.Indications {
		if !slices.Contains(s.indications[row.DrugName], row.Condition) {
			s.indications[row.DrugName] = append(s.indications[row.DrugName], row.Condition)
		}
	}

	return s
}

// EmptySnapshot returns a snapshot with no records
func EmptySnapshot() *Snapshot {
	return NewSnapshot(nil)
}

// Contains reports whether a canonical name is present in either table
func (s *Snapshot) Contains(name string) bool {
	if _, ok := s.curated[name]; ok {
		return true
	}
	_, ok := s.reference[name]
	return ok
}

// Lookup returns the record for a canonical name: curated first, then reference.
// Indications are attached when the indications table has the drug.
func (s *Snapshot) Lookup(name string) (entities.DrugRecord, bool) {
	if d, ok := s.curated[name]; ok {
		return d.WithIndications(s.indications[name]), true
	}
	if d, ok := s.reference[name]; ok {
		return d.WithIndications(s.indications[name]), true
	}
	return entities.DrugRecord{}, false
}

// SuggestAlternative returns the highest-bioavailability record at or above
// minBioavailability. Curated records are considered first; the reference
// table is only searched when no curated record qualifies. Ties break on
// name. Names in exclude are never suggested.
func (s *Snapshot) SuggestAlternative(minBioavailability float64, exclude ...string) (entities.DrugRecord, error) {
	excluded := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excluded[entities.CanonicalName(name)] = true
	}

	pick := func(table map[string]entities.DrugRecord, order []string) (entities.DrugRecord, bool) {
		var best entities.DrugRecord
		found := false
		for _, name := range order {
			d := table[name]
			if excluded[name] || d.Bioavailability < minBioavailability {
				continue
			}
			if !found || d.Bioavailability > best.Bioavailability ||
				(d.Bioavailability == best.Bioavailability && d.Name < best.Name) {
				best = d
				found = true
			}
		}
		return best, found
	}

	if d, ok := pick(s.curated, s.curatedOrder); ok {
		return d.WithIndications(s.indications[d.Name]), nil
	}
	// Reference rows shadowed by a curated name are unreachable
	for name := range s.curated {
		excluded[name] = true
	}
	if d, ok := pick(s.reference, s.referenceOrder); ok {
		return d.WithIndications(s.indications[d.Name]), nil
	}

	return entities.DrugRecord{}, fmt.Errorf("%w: none at or above bioavailability %.2f", ErrNoAlternativeFound, minBioavailability)
}

// SearchBySymptom picks a catalog drug whose indications mention the symptom.
// Matching is a case-insensitive substring test on each indication row.
// Drugs from OTCPriority win when any match; otherwise the drug with the most
// matching rows is chosen, ties broken by name.
func (s *Snapshot) SearchBySymptom(symptom string) (entities.DrugRecord, bool) {
	needle := strings.ToLower(strings.TrimSpace(symptom))
	if needle == "" {
		return entities.DrugRecord{}, false
	}

	counts := make(map[string]int)
	for _, row := range s.indicationRows {
		if !s.Contains(row.DrugName) {
			continue
		}
		if strings.Contains(strings.ToLower(row.Condition), needle) {
			counts[row.DrugName]++
		}
	}
	if len(counts) == 0 {
		return entities.DrugRecord{}, false
	}

	otc := make(map[string]int)
	for _, name := range OTCPriority {
		if c, ok := counts[name]; ok {
			otc[name] = c
		}
	}
	if len(otc) > 0 {
		counts = otc
	}

	best := ""
	for name, c := range counts {
		if best == "" || c > counts[best] || (c == counts[best] && name < best) {
			best = name
		}
	}

	return s.Lookup(best)
}

// Stats reports table sizes for health checks
func (s *Snapshot) Stats() entities.CatalogStats {
	return entities.CatalogStats{
		CuratedCount:    len(s.curated),
		ReferenceCount:  len(s.reference),
		IndicationCount: len(s.indicationRows),
		LoadedAt:        s.loadedAt,
	}
}
