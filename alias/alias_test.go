package alias

import (
	"context"
	"errors"
	"testing"
)

type stubService struct {
	brands      map[string][]string
	generics    map[string]string
	err         error
	brandCalls  int
	genericCall int
}

func (s *stubService) BrandNames(_ context.Context, name string) ([]string, error) {
	s.brandCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.brands[name], nil
}

func (s *stubService) GenericName(_ context.Context, brand string) (string, error) {
	s.genericCall++
	if s.err != nil {
		return "", s.err
	}
	return s.generics[brand], nil
}

type memCache struct {
	entries map[string]string
	puts    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]string)}
}

func (m *memCache) Get(generic string) (string, bool) {
	v, ok := m.entries[generic]
	return v, ok
}

func (m *memCache) Put(generic, brand string) error {
	m.puts++
	if _, ok := m.entries[generic]; !ok {
		m.entries[generic] = brand
	}
	return nil
}

func TestChooseBrand(t *testing.T) {
	testCases := []struct {
		name       string
		candidates []string
		generic    string
		expected   string
	}{
		{"priority wins over order", []string{"Mapap", "Children's Tylenol", "Tylenol"}, "acetaminophen", "Tylenol"},
		{"priority list order", []string{"Motrin", "Advil"}, "ibuprofen", "Advil"},
		{"pediatric filtered", []string{"Infants' Mylicon", "Kids Relief", "Delsym"}, "dextromethorphan", "Delsym"},
		{"all pediatric keeps first", []string{"Children's Claritin Chewables", "Infant Drops"}, "x", "Children's Claritin Chewables"},
		{"no candidates", nil, "WARFARIN", "Warfarin"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ChooseBrand(tc.candidates, tc.generic); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestCapitalize(t *testing.T) {
	testCases := map[string]string{
		"ACETAMINOPHEN": "Acetaminophen",
		"ibuprofen":     "Ibuprofen",
		"éTHANOL":       "Éthanol",
		"":              "",
	}
	for in, expected := range testCases {
		if got := Capitalize(in); got != expected {
			t.Errorf("Capitalize(%q): expected %q, got %q", in, expected, got)
		}
	}
}

func TestMostCommonBrandCachesResult(t *testing.T) {
	service := &stubService{brands: map[string][]string{"acetaminophen": {"Mapap", "Tylenol"}}}
	cache := newMemCache()
	r := NewResolver(service, cache)

	first := r.MostCommonBrand(context.Background(), "ACETAMINOPHEN")
	second := r.MostCommonBrand(context.Background(), "acetaminophen")

	if first != "Tylenol" || second != "Tylenol" {
		t.Errorf("Expected Tylenol twice, got %q and %q", first, second)
	}
	if service.brandCalls != 1 {
		t.Errorf("Expected one external call, got %d", service.brandCalls)
	}
	if cache.entries["acetaminophen"] != "Tylenol" {
		t.Errorf("Expected lowercase cache key, got %v", cache.entries)
	}
}

func TestMostCommonBrandCachesCapitalizedFallback(t *testing.T) {
	service := &stubService{}
	cache := newMemCache()
	r := NewResolver(service, cache)

	if got := r.MostCommonBrand(context.Background(), "LORATADINE"); got != "Loratadine" {
		t.Errorf("Expected Loratadine, got %q", got)
	}
	if cache.entries["loratadine"] != "Loratadine" {
		t.Errorf("Expected fallback to be cached, got %v", cache.entries)
	}
}

func TestMostCommonBrandServiceFailure(t *testing.T) {
	service := &stubService{err: errors.New("connection refused")}
	cache := newMemCache()
	r := NewResolver(service, cache)

	if got := r.MostCommonBrand(context.Background(), "NAPROXEN"); got != "Naproxen" {
		t.Errorf("Expected Naproxen, got %q", got)
	}
	if cache.puts != 0 {
		t.Errorf("Expected nothing cached on failure, got %d puts", cache.puts)
	}
}

func TestMostCommonBrandWithoutService(t *testing.T) {
	r := NewResolver(nil, nil)
	if got := r.MostCommonBrand(context.Background(), "ASPIRIN"); got != "Aspirin" {
		t.Errorf("Expected Aspirin, got %q", got)
	}
}

func TestGenericFromBrand(t *testing.T) {
	service := &stubService{generics: map[string]string{"Aleve": "naproxen"}}
	r := NewResolver(service, nil)

	testCases := []struct {
		brand    string
		expected string
	}{
		{"Tylenol", "ACETAMINOPHEN"},
		{"NYQUIL", "DEXTROMETHORPHAN"},
		{"Aleve", "NAPROXEN"},
		{"Unknownix", "UNKNOWNIX"},
	}
	for _, tc := range testCases {
		if got := r.GenericFromBrand(context.Background(), tc.brand); got != tc.expected {
			t.Errorf("GenericFromBrand(%q): expected %q, got %q", tc.brand, tc.expected, got)
		}
	}

	// Static table entries never reach the service
	if service.genericCall != 2 {
		t.Errorf("Expected 2 service calls, got %d", service.genericCall)
	}
}

func TestGenericFromBrandServiceFailure(t *testing.T) {
	r := NewResolver(&stubService{err: errors.New("circuit open")}, nil)
	if got := r.GenericFromBrand(context.Background(), "Motrin IB"); got != "MOTRIN IB" {
		t.Errorf("Expected uppercased input, got %q", got)
	}
}
