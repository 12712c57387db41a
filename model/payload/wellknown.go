package payload

import (
	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/hash"
)

const (
	AddressSchema     = "network.xyo.address"
	QuerySchema       = "network.xyo.query"
	ModuleErrorSchema = "network.xyo.error.module"
	TimestampSchema   = "network.xyo.timestamp"
)

// Address announces a module address, and its name when it has one.
type Address struct {
	Schema  string         `json:"schema"`
	Address crypto.Address `json:"address"`
	Name    string         `json:"name,omitempty"`
}

func NewAddress(addr crypto.Address, name string) Payload {
	return MustFrom(Address{Schema: AddressSchema, Address: addr, Name: name})
}

// Query announces one query schema a module supports.
type Query struct {
	Schema string `json:"schema"`
	Query  string `json:"query"`
}

func NewQuery(schema string) Payload {
	return MustFrom(Query{Schema: QuerySchema, Query: schema})
}

// ModuleError is the inline record of a failed query. Sources references the query hash.
type ModuleError struct {
	Schema  string      `json:"schema"`
	Message string      `json:"message"`
	Name    string      `json:"name,omitempty"`
	Query   string      `json:"query,omitempty"`
	Sources []hash.Hash `json:"sources,omitempty"`
}

func NewModuleError(queryHash hash.Hash, name string, query string, message string) Payload {
	return MustFrom(ModuleError{
		Schema:  ModuleErrorSchema,
		Message: message,
		Name:    name,
		Query:   query,
		Sources: []hash.Hash{queryHash},
	})
}

// IsModuleError reports whether p is an inline module error.
func IsModuleError(p Payload) bool {
	return p.Schema() == ModuleErrorSchema
}

// ModuleErrors returns the inline module errors found among payloads.
func ModuleErrors(payloads []Payload) []ModuleError {
	var errs []ModuleError
	for _, p := range payloads {
		if !IsModuleError(p) {
			continue
		}
		var me ModuleError
		if err := p.Decode(&me); err != nil {
			me = ModuleError{Schema: ModuleErrorSchema, Message: "malformed module error payload"}
		}
		errs = append(errs, me)
	}
	return errs
}

// Timestamp records a point in time in unix milliseconds.
type Timestamp struct {
	Schema    string `json:"schema"`
	Timestamp int64  `json:"timestamp"`
}

func NewTimestamp(unixMillis int64) Payload {
	return MustFrom(Timestamp{Schema: TimestampSchema, Timestamp: unixMillis})
}
