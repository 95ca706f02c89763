package storage

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed entities.yaml
var entitiesYAML []byte

// Entity is one federal entity with the region it is reported under.
type Entity struct {
	Code   int    `yaml:"code"`
	Name   string `yaml:"name"`
	Region string `yaml:"region"`
}

// EntityCatalog resolves ENTIDAD_RES codes.
type EntityCatalog struct {
	byCode map[int]Entity
}

// LoadEntities parses the embedded catalogue.
func LoadEntities() (*EntityCatalog, error) {
	return ParseEntities(entitiesYAML)
}

func ParseEntities(data []byte) (*EntityCatalog, error) {
	var doc struct {
		Entities []Entity `yaml:"entities"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse entity catalog: %w", err)
	}
	c := &EntityCatalog{byCode: make(map[int]Entity, len(doc.Entities))}
	for _, e := range doc.Entities {
		if e.Name == "" || e.Region == "" {
			return nil, fmt.Errorf("entity %d: name and region are required", e.Code)
		}
		if _, dup := c.byCode[e.Code]; dup {
			return nil, fmt.Errorf("entity %d listed twice", e.Code)
		}
		c.byCode[e.Code] = e
	}
	return c, nil
}

func (c *EntityCatalog) Lookup(code int) (Entity, bool) {
	e, ok := c.byCode[code]
	return e, ok
}

func (c *EntityCatalog) Len() int {
	return len(c.byCode)
}
