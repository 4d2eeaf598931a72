package catalog

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"imposter"
)

// Domain is one themed category and its candidate items
type Domain struct {
	Name  string   `yaml:"name"`
	Items []string `yaml:"items"`
}

type catalogFile struct {
	Domains []Domain `yaml:"domains"`
}

// Catalog is the static mapping of domain to items. It is read-only after
// construction and safe for concurrent use.
type Catalog struct {
	domains []string
	items   map[string][]string
}

// New parses a YAML catalog document
func New(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	if len(file.Domains) == 0 {
		return nil, fmt.Errorf("catalog has no domains")
	}

	c := &Catalog{
		domains: make([]string, 0, len(file.Domains)),
		items:   make(map[string][]string, len(file.Domains)),
	}

	for _, d := range file.Domains {
		if d.Name == "" {
			return nil, fmt.Errorf("catalog domain with empty name")
		}
		if _, exists := c.items[d.Name]; exists {
			return nil, fmt.Errorf("catalog domain %q defined twice", d.Name)
		}
		if len(d.Items) == 0 {
			return nil, fmt.Errorf("catalog domain %q has no items", d.Name)
		}
		c.domains = append(c.domains, d.Name)
		c.items[d.Name] = slices.Clone(d.Items)
	}

	return c, nil
}

// Default returns the catalog embedded in the binary
func Default() *Catalog {
	c, err := New(imposter.CatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Domains returns the domain names in catalog order
func (c *Catalog) Domains() []string {
	return slices.Clone(c.domains)
}

// ItemsFor returns the items of a domain in catalog order. Unknown domains
// yield an empty result.
func (c *Catalog) ItemsFor(domain string) []string {
	items, ok := c.items[domain]
	if !ok {
		return []string{}
	}
	return slices.Clone(items)
}

// Has reports whether the domain exists
func (c *Catalog) Has(domain string) bool {
	_, ok := c.items[domain]
	return ok
}
