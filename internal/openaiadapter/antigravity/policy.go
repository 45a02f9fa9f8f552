package antigravity

import (
	"bytes"
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var defaultModelsYAML []byte

// ModelTable is the data behind a ModelPolicy.
type ModelTable struct {
	Aliases          map[string]string `yaml:"aliases"`
	Thinking         ThinkingRules     `yaml:"thinking"`
	TopPIncompatible []string          `yaml:"top_p_incompatible"`
}

// ThinkingRules decide which model ids get extended thinking.
type ThinkingRules struct {
	Suffix   string   `yaml:"suffix"`
	Models   []string `yaml:"models"`
	Prefixes []string `yaml:"prefixes"`
}

// ParseModelTable decodes a YAML model table. Unknown keys are rejected.
func ParseModelTable(data []byte) (ModelTable, error) {
	var table ModelTable
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&table); err != nil {
		return ModelTable{}, fmt.Errorf("parse model table: %w", err)
	}
	return table, nil
}

// DefaultModelTable returns the embedded model table.
func DefaultModelTable() ModelTable {
	table, err := ParseModelTable(defaultModelsYAML)
	if err != nil {
		// Embedded at build time; a failure here is a broken build.
		panic(err)
	}
	return table
}

// ModelPolicy maps client model ids to upstream ids and decides whether thinking is enabled.
// It is immutable and safe for concurrent use.
type ModelPolicy struct {
	table ModelTable
}

// NewModelPolicy creates a policy from table.
func NewModelPolicy(table ModelTable) *ModelPolicy {
	return &ModelPolicy{table: table}
}

// Resolve returns the upstream model id and whether thinking is enabled for clientModel.
// Unknown ids pass through unchanged and are left for the upstream to reject.
func (p *ModelPolicy) Resolve(clientModel string) (upstreamModel string, thinking bool) {
	upstreamModel = clientModel
	if alias, ok := p.table.Aliases[clientModel]; ok {
		upstreamModel = alias
	}
	return upstreamModel, p.thinks(clientModel) || p.thinks(upstreamModel)
}

// TopPIncompatible reports whether the upstream model belongs to a family that rejects topP
// while thinking.
func (p *ModelPolicy) TopPIncompatible(upstreamModel string) bool {
	return slices.ContainsFunc(p.table.TopPIncompatible, func(family string) bool {
		return strings.HasPrefix(upstreamModel, family)
	})
}

func (p *ModelPolicy) thinks(model string) bool {
	rules := p.table.Thinking
	if rules.Suffix != "" && strings.HasSuffix(model, rules.Suffix) {
		return true
	}
	if slices.Contains(rules.Models, model) {
		return true
	}
	return slices.ContainsFunc(rules.Prefixes, func(prefix string) bool {
		return strings.HasPrefix(model, prefix)
	})
}
