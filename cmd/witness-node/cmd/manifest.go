package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/witnessnet/witnessnet/module/archivist"
	"github.com/witnessnet/witnessnet/module/diviner"
	"github.com/witnessnet/witnessnet/module/node"
	"github.com/witnessnet/witnessnet/module/sentinel"
	"github.com/witnessnet/witnessnet/module/witness"
)

// Module kinds a manifest can declare.
const (
	KindNode                  = "node"
	KindArchivist             = "archivist"
	KindTimestampWitness      = "witness.timestamp"
	KindAdhocWitness          = "witness.adhoc"
	KindSentinel              = "sentinel"
	KindPayloadDiviner        = "diviner.payload"
	KindAddressHistoryDiviner = "diviner.addresshistory"
)

var configSchemas = map[string]string{
	KindNode:                  node.ConfigSchema,
	KindArchivist:             archivist.ConfigSchema,
	KindTimestampWitness:      witness.TimestampConfigSchema,
	KindAdhocWitness:          witness.AdhocConfigSchema,
	KindSentinel:              sentinel.ConfigSchema,
	KindPayloadDiviner:        diviner.PayloadConfigSchema,
	KindAddressHistoryDiviner: diviner.AddressHistoryConfigSchema,
}

// Manifest describes the modules a witness node runs.
type Manifest struct {
	// Mnemonic seeds the accounts of every module. A random one is used when empty, and the
	// addresses then change on every start.
	Mnemonic string `yaml:"mnemonic"`

	// Path is the derivation path of the root node account.
	Path string `yaml:"path"`

	Node ModuleManifest `yaml:"node"`

	// Bridges are remote nodes whose exposed modules the root node can resolve.
	Bridges []BridgeManifest `yaml:"bridges"`
}

type ModuleManifest struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// Path is the derivation path of the module account, relative to the root account unless
	// it starts with "m/". Modules without one get the next free index.
	Path string `yaml:"path"`

	// External modules are exposed by their parent node.
	External bool `yaml:"external"`

	// Persistent archivists keep their payloads in the data directory.
	Persistent bool `yaml:"persistent"`

	// Config holds the module config fields, besides its schema and name.
	Config map[string]interface{} `yaml:"config"`

	Automations []AutomationManifest `yaml:"automations"`

	// Modules are the children of a node.
	Modules []ModuleManifest `yaml:"modules"`
}

type AutomationManifest struct {
	Interval  time.Duration `yaml:"interval"`
	Delay     time.Duration `yaml:"delay"`
	Remaining int           `yaml:"remaining"`
}

type BridgeManifest struct {
	URL        string        `yaml:"url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries uint64        `yaml:"maxRetries"`
}

// LoadManifest reads and validates a YAML manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read manifest: %w", err)
	}
	return ParseManifest(data)
}

func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	err := yaml.Unmarshal(data, &m)
	if err != nil {
		return nil, fmt.Errorf("could not parse manifest: %w", err)
	}
	if m.Node.Kind == "" {
		m.Node.Kind = KindNode
	}
	err = m.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// Validate checks the module kinds and that names are unique among siblings.
func (m *Manifest) Validate() error {
	if m.Node.Kind != KindNode {
		return fmt.Errorf("root module must be a node, not %q", m.Node.Kind)
	}
	for _, b := range m.Bridges {
		if b.URL == "" {
			return errors.New("bridge without url")
		}
	}
	return m.Node.validate("node")
}

func (mm *ModuleManifest) validate(at string) error {
	if _, ok := configSchemas[mm.Kind]; !ok {
		return fmt.Errorf("%s: unknown module kind %q", at, mm.Kind)
	}
	if mm.Kind != KindNode && len(mm.Modules) > 0 {
		return fmt.Errorf("%s: only nodes have child modules", at)
	}
	if mm.Kind != KindSentinel && len(mm.Automations) > 0 {
		return fmt.Errorf("%s: only sentinels have automations", at)
	}
	if mm.Kind != KindArchivist && mm.Persistent {
		return fmt.Errorf("%s: only archivists are persistent", at)
	}
	if mm.Persistent && mm.Name == "" {
		return fmt.Errorf("%s: persistent archivists need a name", at)
	}

	names := make(map[string]struct{}, len(mm.Modules))
	for i := range mm.Modules {
		child := &mm.Modules[i]
		childAt := fmt.Sprintf("%s.modules[%d]", at, i)
		if child.Name != "" {
			if _, ok := names[child.Name]; ok {
				return fmt.Errorf("%s: duplicate module name %q", childAt, child.Name)
			}
			names[child.Name] = struct{}{}
		}
		if err := child.validate(childAt); err != nil {
			return err
		}
	}
	return nil
}
