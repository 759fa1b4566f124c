// Package capability holds the static, provider-authored model metadata
// table. The table is bundled with the binary, parsed once at init, and
// read-only afterwards.
package capability

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/glyphic-ai/genflow/providers"
)

//go:embed capabilities.yaml
var rawTable []byte

var (
	table []providers.Capability
	byID  map[string]providers.Capability
)

func init() {
	var doc struct {
		Capabilities []providers.Capability `yaml:"capabilities"`
	}
	if err := yaml.Unmarshal(rawTable, &doc); err != nil {
		panic(fmt.Sprintf("capability: bundled table is invalid: %v", err))
	}
	table = doc.Capabilities
	byID = make(map[string]providers.Capability, len(table))
	for _, c := range table {
		if c.ID == "" || c.WireFamily == "" || c.APIBaseURL == "" {
			panic(fmt.Sprintf("capability: incomplete row %+v", c))
		}
		if _, dup := byID[c.ID]; dup {
			panic(fmt.Sprintf("capability: duplicate id %q", c.ID))
		}
		byID[c.ID] = c
	}
}

// Lookup returns the capability for id. An unknown id is a hard
// InvalidConfig error, never silently defaulted.
func Lookup(id string) (providers.Capability, error) {
	c, ok := byID[id]
	if !ok {
		return providers.Capability{}, providers.NewPluginError(
			providers.KindInvalidConfig,
			fmt.Sprintf("unknown capability %q", id),
			false, nil,
		)
	}
	return c, nil
}

// All returns a copy of the full table, in authored order.
func All() []providers.Capability {
	out := make([]providers.Capability, len(table))
	copy(out, table)
	return out
}
