// Package catalog supplies the immutable universe of topic, subskill and
// structure names that every mastery profile must cover.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
)

//go:embed templates/profile_template.json
var templateFS embed.FS

// Catalog is the fixed topic → subskill → structure tree. Keys are the
// normalized snake_case names shared with the generator service.
type Catalog struct {
	Topics map[string]Topic `json:"topics"`
}

type Topic struct {
	Subskills map[string]Subskill `json:"subskills"`
}

type Subskill struct {
	Structures map[string]struct{} `json:"structures"`
}

// Loader returns the catalog tree. The user id is only stamped onto derived
// payloads by callers; the template itself is static.
type Loader interface {
	LoadCatalog(userID string) (*Catalog, error)
}

type templateLoader struct {
	cached *Catalog
}

func NewTemplateLoader() (Loader, error) {
	raw, err := templateFS.ReadFile("templates/profile_template.json")
	if err != nil {
		return nil, fmt.Errorf("read profile template: %w", err)
	}
	var c Catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse profile template: %w", err)
	}
	if len(c.Topics) == 0 {
		return nil, fmt.Errorf("profile template has no topics")
	}
	return &templateLoader{cached: &c}, nil
}

func (l *templateLoader) LoadCatalog(userID string) (*Catalog, error) {
	if l == nil || l.cached == nil {
		return nil, fmt.Errorf("catalog loader not configured")
	}
	return l.cached, nil
}

// Contains reports whether the full topic/subskill/structure key path exists.
func (c *Catalog) Contains(topic, subskill, structure string) bool {
	if c == nil {
		return false
	}
	t, ok := c.Topics[topic]
	if !ok {
		return false
	}
	s, ok := t.Subskills[subskill]
	if !ok {
		return false
	}
	_, ok = s.Structures[structure]
	return ok
}

// TopicNames returns topic keys in sorted order, mainly for deterministic
// logging and tests.
func (c *Catalog) TopicNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Topics))
	for name := range c.Topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
