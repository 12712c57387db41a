package module

import (
	"fmt"
	"reflect"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/payload"
)

// Config holds the settings shared by every module variant. Variant specific settings live in
// Extra and travel with the common ones in the config payload.
type Config struct {
	Schema string
	Name   string

	Security SecurityConfig

	// EphemeralQueryAccount cosigns every response with a fresh account.
	EphemeralQueryAccount bool

	NotStartedAction NotStartedAction

	Extra map[string]interface{}
}

// SecurityConfig restricts which signers may send which queries.
type SecurityConfig struct {
	// AllowAnonymous admits unsigned queries even when rules are configured.
	AllowAnonymous bool `json:"allowAnonymous,omitempty"`

	// Allowed maps a query schema to sets of cosigners. A query passes if one set is fully
	// among its signers, or if each of its signers is individually allowed.
	Allowed map[string][][]crypto.Address `json:"allowed,omitempty"`

	// Disallowed maps a query schema to signers whose queries are rejected.
	Disallowed map[string][]crypto.Address `json:"disallowed,omitempty"`
}

// HasRules reports whether any allow or disallow rule is configured.
func (s SecurityConfig) HasRules() bool {
	return len(s.Allowed) > 0 || len(s.Disallowed) > 0
}

const (
	configName             = "name"
	configSecurity         = "security"
	configEphemeral        = "ephemeralQueryAccountEnabled"
	configNotStartedAction = "notStartedAction"
)

// Payload returns the config payload advertised by Discover.
func (c Config) Payload() payload.Payload {
	p := payload.New(c.Schema, c.Extra)
	if c.Name != "" {
		p[configName] = c.Name
	}
	if c.Security.AllowAnonymous || c.Security.HasRules() {
		p[configSecurity] = c.Security
	}
	if c.EphemeralQueryAccount {
		p[configEphemeral] = true
	}
	if c.NotStartedAction != "" {
		p[configNotStartedAction] = string(c.NotStartedAction)
	}
	return p
}

// ConfigFromPayload splits a config payload into the common settings and the variant specific
// ones.
func ConfigFromPayload(p payload.Payload) (Config, error) {
	if err := p.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	var common struct {
		Name             string           `json:"name"`
		Security         SecurityConfig   `json:"security"`
		Ephemeral        bool             `json:"ephemeralQueryAccountEnabled"`
		NotStartedAction NotStartedAction `json:"notStartedAction"`
	}
	err := p.Decode(&common)
	if err != nil {
		return Config{}, NewInvalidConfigErrorf("", "could not decode config: %v", err)
	}

	extra := make(map[string]interface{})
	for k, v := range p {
		switch k {
		case payload.SchemaField, configName, configSecurity, configEphemeral, configNotStartedAction:
			continue
		}
		extra[k] = v
	}

	return Config{
		Schema:                p.Schema(),
		Name:                  common.Name,
		Security:              common.Security,
		EphemeralQueryAccount: common.Ephemeral,
		NotStartedAction:      common.NotStartedAction,
		Extra:                 extra,
	}, nil
}

// DecodeExtra decodes the variant specific settings into out.
func (c Config) DecodeExtra(out interface{}) error {
	return payload.New(c.Schema, c.Extra).Decode(out)
}

// Validate checks the config only holds serializable values. Functions, channels, complex
// numbers and unsafe pointers are rejected at any depth, with the path of the offending value.
func (c Config) Validate() error {
	if c.Schema == "" {
		return NewInvalidConfigErrorf("schema", "missing schema")
	}
	switch c.NotStartedAction {
	case "", NotStartedWarn, NotStartedError, NotStartedNone:
	default:
		return NewInvalidConfigErrorf(configNotStartedAction, "unknown action %q", c.NotStartedAction)
	}
	for k, v := range c.Extra {
		if err := validateValue(k, reflect.ValueOf(v)); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(path string, v reflect.Value) error {
	if !v.IsValid() {
		return nil
	}
	switch v.Kind() {
	case reflect.Func, reflect.Chan, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return NewInvalidConfigErrorf(path, "unserializable %s value", v.Kind())
	case reflect.Interface, reflect.Ptr:
		if v.IsNil() {
			return nil
		}
		return validateValue(path, v.Elem())
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := validateValue(fmt.Sprintf("%s[%d]", path, i), v.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := validateValue(fmt.Sprintf("%s.%v", path, iter.Key()), iter.Value()); err != nil {
				return err
			}
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			if err := validateValue(path+"."+t.Field(i).Name, v.Field(i)); err != nil {
				return err
			}
		}
	}
	return nil
}
