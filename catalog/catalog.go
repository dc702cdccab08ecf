// Package catalog is the fixed country reference table used to draw game
// targets and to resolve and autocomplete guesses.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"worldroom/geo"
)

// MaxSearchResults caps Search output.
const MaxSearchResults = 8

//go:embed countries.yaml
var countriesYAML []byte

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

type Country struct {
	Code       string  `yaml:"code" json:"code"`
	Name       string  `yaml:"name" json:"name"`
	Capital    string  `yaml:"capital" json:"capital"`
	Population int64   `yaml:"population" json:"population"`
	Area       float64 `yaml:"area" json:"area"`
	Continent  string  `yaml:"continent" json:"continent"`
	Lat        float64 `yaml:"lat" json:"latitude"`
	Lon        float64 `yaml:"lon" json:"longitude"`
}

func (c Country) Place() geo.Place {
	return geo.Place{Code: c.Code, Point: geo.Point{Lat: c.Lat, Lon: c.Lon}}
}

type entry struct {
	country Country
	name    string
	capital string
}

type Catalog struct {
	entries []entry
	byCode  map[string]int
	byName  map[string]int
}

// Default returns the embedded catalog. It panics if the embedded data is
// malformed, which can only happen at build time.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(countriesYAML)
		if err != nil {
			panic(fmt.Sprintf("catalog: embedded data: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Countries []Country `yaml:"countries"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	return New(doc.Countries)
}

func New(countries []Country) (*Catalog, error) {
	c := &Catalog{
		entries: make([]entry, 0, len(countries)),
		byCode:  make(map[string]int, len(countries)),
		byName:  make(map[string]int, len(countries)),
	}
	for _, country := range countries {
		if country.Code == "" || country.Name == "" {
			return nil, errors.New("catalog: country without code or name")
		}
		code := strings.ToUpper(country.Code)
		if _, dup := c.byCode[code]; dup {
			return nil, fmt.Errorf("catalog: duplicate code %s", code)
		}
		country.Code = code
		e := entry{country: country, name: fold(country.Name), capital: fold(country.Capital)}
		c.byCode[code] = len(c.entries)
		c.byName[e.name] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c, nil
}

// fold lowercases and strips diacritics so "cote d'ivoire" finds "Côte d'Ivoire".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	out, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

func (c *Catalog) Len() int { return len(c.entries) }

func (c *Catalog) All() []Country {
	out := make([]Country, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.country
	}
	return out
}

func (c *Catalog) LookupByCode(code string) (Country, bool) {
	i, ok := c.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Country{}, false
	}
	return c.entries[i].country, true
}

func (c *Catalog) LookupByName(name string) (Country, bool) {
	i, ok := c.byName[fold(name)]
	if !ok {
		return Country{}, false
	}
	return c.entries[i].country, true
}

// RandomCountries draws up to n distinct countries uniformly at random,
// skipping any whose code is in excludeCodes. Fewer than n are returned when
// the catalog runs out.
func (c *Catalog) RandomCountries(n int, excludeCodes ...string) []Country {
	if n <= 0 {
		return nil
	}
	skip := make(map[string]struct{}, len(excludeCodes))
	for _, code := range excludeCodes {
		skip[strings.ToUpper(code)] = struct{}{}
	}
	pool := make([]Country, 0, len(c.entries))
	for _, e := range c.entries {
		if _, ok := skip[e.country.Code]; !ok {
			pool = append(pool, e.country)
		}
	}
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if n > len(pool) {
		n = len(pool)
	}
	return pool[:n]
}

// Search ranks countries whose name or capital matches query: exact matches
// first, then prefix, then substring. Countries named in excludeNames are
// left out. Matching ignores case and diacritics.
func (c *Catalog) Search(query string, excludeNames []string) []Country {
	q := fold(query)
	if q == "" {
		return nil
	}
	excluded := make(map[string]struct{}, len(excludeNames))
	for _, name := range excludeNames {
		excluded[fold(name)] = struct{}{}
	}

	var exact, prefix, substring []Country
	for _, e := range c.entries {
		if _, skip := excluded[e.name]; skip {
			continue
		}
		switch {
		case e.name == q || e.capital == q:
			exact = append(exact, e.country)
		case strings.HasPrefix(e.name, q) || strings.HasPrefix(e.capital, q):
			prefix = append(prefix, e.country)
		case strings.Contains(e.name, q) || strings.Contains(e.capital, q):
			substring = append(substring, e.country)
		}
	}

	results := append(append(exact, prefix...), substring...)
	if len(results) > MaxSearchResults {
		results = results[:MaxSearchResults]
	}
	return results
}
