// Package currency is the currency master list lookup used while coercing cells.
package currency

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/patrickmn/go-cache"
	"gopkg.in/yaml.v3"

	"exchange-import/internal/domain"
)

// ErrUnknownCurrency is returned for codes absent from the master list.
var ErrUnknownCurrency = errors.New("unknown currency")

//go:embed currencies.yaml
var defaultList []byte

// Resolver resolves an exchange-specific currency code to a master list entry.
type Resolver interface {
	Resolve(code string) (domain.Currency, error)
}

type entry struct {
	Code     string   `yaml:"code"`
	Name     string   `yaml:"name"`
	Fiat     bool     `yaml:"fiat"`
	StakedOf string   `yaml:"staked_of"`
	Aliases  []string `yaml:"aliases"`
}

type listFile struct {
	Currencies []entry `yaml:"currencies"`
}

// Catalog is an immutable master list. Spellings the list does not name verbatim go
// through a fallback resolution whose outcome, a miss included, is memoized. The memo
// is safe to share between concurrent parses.
type Catalog struct {
	byCode  map[string]domain.Currency
	aliases map[string]string
	memo    *cache.Cache
}

// Default returns the embedded master list.
func Default() (*Catalog, error) {
	return Parse(defaultList)
}

// Load reads a master list from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read currency list %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var f listFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("cannot parse currency list: %w", err)
	}
	c := &Catalog{
		byCode:  make(map[string]domain.Currency, len(f.Currencies)),
		aliases: make(map[string]string),
		memo:    cache.New(cache.NoExpiration, 0),
	}
	for _, e := range f.Currencies {
		code := normalize(e.Code)
		if code == "" {
			return nil, errors.New("currency list entry without code")
		}
		if _, dup := c.byCode[code]; dup {
			return nil, fmt.Errorf("duplicate currency %s", code)
		}
		c.byCode[code] = domain.Currency{Code: code, Name: e.Name, Fiat: e.Fiat, StakedOf: normalize(e.StakedOf)}
		for _, a := range e.Aliases {
			c.aliases[normalize(a)] = code
		}
	}
	for _, cur := range c.byCode {
		if cur.StakedOf == "" {
			continue
		}
		if _, ok := c.byCode[cur.StakedOf]; !ok {
			return nil, fmt.Errorf("currency %s is staked form of unknown %s", cur.Code, cur.StakedOf)
		}
	}
	for alias, code := range c.aliases {
		if _, clash := c.byCode[alias]; clash {
			return nil, fmt.Errorf("alias %s of %s shadows a currency code", alias, code)
		}
	}
	return c, nil
}

// Resolve implements Resolver.
func (c *Catalog) Resolve(code string) (domain.Currency, error) {
	key := normalize(code)
	if cur, ok := c.lookup(key); ok {
		return cur, nil
	}
	if cached, ok := c.memo.Get(key); ok {
		if cur, found := cached.(domain.Currency); found {
			return cur, nil
		}
		return domain.Currency{}, fmt.Errorf("%w: %s", ErrUnknownCurrency, strings.TrimSpace(code))
	}
	cur, ok := c.fallback(key)
	if !ok {
		c.memo.Set(key, miss{}, cache.NoExpiration)
		return domain.Currency{}, fmt.Errorf("%w: %s", ErrUnknownCurrency, strings.TrimSpace(code))
	}
	c.memo.Set(key, cur, cache.NoExpiration)
	return cur, nil
}

type miss struct{}

func (c *Catalog) lookup(key string) (domain.Currency, bool) {
	if cur, ok := c.byCode[key]; ok {
		return cur, true
	}
	if target, ok := c.aliases[key]; ok {
		return c.byCode[target], true
	}
	return domain.Currency{}, false
}

// earnSuffixes mark a balance held in an earn or staking program, e.g. DOT.F or DOT28.S.
const earnSuffixes = "SFMBP"

// fallback resolves decorated spellings: earn suffixes map to the staked variant of
// the base, and a legacy four letter X or Z prefixed code maps to the bare code.
func (c *Catalog) fallback(key string) (domain.Currency, bool) {
	if dot := strings.LastIndexByte(key, '.'); dot > 0 && len(key)-dot == 2 && strings.IndexByte(earnSuffixes, key[dot+1]) >= 0 {
		base := key[:dot]
		for _, b := range []string{base, strings.TrimRight(base, "0123456789")} {
			if b == "" {
				continue
			}
			if cur, ok := c.lookup(b + ".S"); ok && cur.StakedOf != "" {
				return cur, true
			}
		}
		return domain.Currency{}, false
	}
	if len(key) == 4 && (key[0] == 'X' || key[0] == 'Z') {
		return c.lookup(key[1:])
	}
	return domain.Currency{}, false
}

// Len returns the number of master list entries.
func (c *Catalog) Len() int {
	return len(c.byCode)
}

func normalize(code string) string {
	return strings.ToUpper(strings.Trim(strings.TrimSpace(code), `"'`))
}
