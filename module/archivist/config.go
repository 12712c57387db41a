package archivist

import (
	"github.com/witnessnet/witnessnet/module"
)

// DefaultMaxSize bounds the memory store when no max size is configured.
const DefaultMaxSize = 10000

// Parents lists the archivists, by address or name, an archivist reads through, writes through
// and commits to.
type Parents struct {
	Commit []string `json:"commit,omitempty"`
	Read   []string `json:"read,omitempty"`
	Write  []string `json:"write,omitempty"`
}

func (p Parents) empty() bool {
	return len(p.Commit) == 0 && len(p.Read) == 0 && len(p.Write) == 0
}

// Config holds the archivist specific settings carried in the module config.
type Config struct {
	Parents Parents `json:"parents"`

	// RequireAllParents fails parent operations when a configured parent does not resolve.
	// Unset means true.
	RequireAllParents *bool `json:"requireAllParents,omitempty"`

	// StoreParentReads caches payloads found in read parents.
	StoreParentReads bool `json:"storeParentReads,omitempty"`

	// MaxSize bounds the number of payloads held by the memory store.
	MaxSize int `json:"maxSize,omitempty"`
}

// ParseConfig reads the archivist settings from a module config.
func ParseConfig(mc module.Config) (Config, error) {
	var c Config
	err := mc.DecodeExtra(&c)
	if err != nil {
		return Config{}, module.NewInvalidConfigErrorf("", "could not decode archivist config: %v", err)
	}
	if c.MaxSize < 0 {
		return Config{}, module.NewInvalidConfigErrorf("maxSize", "negative max size %d", c.MaxSize)
	}
	if c.MaxSize == 0 {
		c.MaxSize = DefaultMaxSize
	}
	return c, nil
}

func (c Config) requireAllParents() bool {
	return c.RequireAllParents == nil || *c.RequireAllParents
}

// Extra renders the settings as the variant specific part of a module config.
func (c Config) Extra() map[string]interface{} {
	extra := make(map[string]interface{})
	if !c.Parents.empty() {
		parents := make(map[string]interface{})
		for key, refs := range map[string][]string{"commit": c.Parents.Commit, "read": c.Parents.Read, "write": c.Parents.Write} {
			if len(refs) == 0 {
				continue
			}
			list := make([]interface{}, 0, len(refs))
			for _, ref := range refs {
				list = append(list, ref)
			}
			parents[key] = list
		}
		extra["parents"] = parents
	}
	if c.RequireAllParents != nil {
		extra["requireAllParents"] = *c.RequireAllParents
	}
	if c.StoreParentReads {
		extra["storeParentReads"] = true
	}
	if c.MaxSize > 0 {
		extra["maxSize"] = c.MaxSize
	}
	return extra
}

// NewConfig builds the module config of an archivist.
func NewConfig(name string, c Config) module.Config {
	return module.Config{
		Schema: ConfigSchema,
		Name:   name,
		Extra:  c.Extra(),
	}
}
