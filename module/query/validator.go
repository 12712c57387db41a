package query

import (
	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
)

// Validator decides whether a query may be dispatched. A nil error admits the query.
type Validator interface {
	Validate(bw *boundwitness.BoundWitness, query payload.Payload) error
}

// ValidatorFunc adapts a function to a Validator.
type ValidatorFunc func(bw *boundwitness.BoundWitness, query payload.Payload) error

func (f ValidatorFunc) Validate(bw *boundwitness.BoundWitness, query payload.Payload) error {
	return f(bw, query)
}

// Validate runs the validators in order and returns the first rejection.
func Validate(bw *boundwitness.BoundWitness, query payload.Payload, validators ...Validator) error {
	for _, v := range validators {
		if err := v.Validate(bw, query); err != nil {
			return err
		}
	}
	return nil
}

// SupportedValidator admits the query schemas a module declares.
type SupportedValidator struct {
	queries func() []string
}

func NewSupportedValidator(queries func() []string) *SupportedValidator {
	return &SupportedValidator{queries: queries}
}

func (v *SupportedValidator) Validate(_ *boundwitness.BoundWitness, query payload.Payload) error {
	schema := query.Schema()
	for _, q := range v.queries() {
		if q == schema {
			return nil
		}
	}
	return module.NewUnsupportedQueryError(schema)
}

// ConfigValidator enforces a module's security config against the signers of a query.
type ConfigValidator struct {
	security module.SecurityConfig
}

func NewConfigValidator(security module.SecurityConfig) *ConfigValidator {
	return &ConfigValidator{security: security}
}

func (v *ConfigValidator) Validate(bw *boundwitness.BoundWitness, query payload.Payload) error {
	if !v.security.HasRules() {
		return nil
	}

	schema := query.Schema()
	signers := crypto.NewAddressSet(bw.Addresses...)

	if len(signers) == 0 {
		if v.security.AllowAnonymous {
			return nil
		}
		return module.NewNotQueryableErrorf("anonymous %s queries are not allowed", schema)
	}

	for _, addr := range v.security.Disallowed[schema] {
		if signers.Has(addr) {
			return module.NewNotQueryableErrorf("%s queries from %s are not allowed", schema, addr)
		}
	}

	allowed, ok := v.security.Allowed[schema]
	if !ok {
		return nil
	}

	individually := crypto.NewAddressSet()
	for _, cosigners := range allowed {
		if len(cosigners) > 0 && signers.Contains(cosigners...) {
			return nil
		}
		if len(cosigners) == 1 {
			individually.Add(cosigners[0])
		}
	}
	if individually.Contains(bw.Addresses...) {
		return nil
	}

	return module.NewNotQueryableErrorf("%s queries from %v are not allowed", schema, bw.Addresses)
}
