package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
)

// ModuleErrorResult is returned by Wrapper when a response carries inline module errors. The
// response and its payloads are returned alongside it.
type ModuleErrorResult struct {
	Errors []payload.ModuleError
}

func (e ModuleErrorResult) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, me := range e.Errors {
		if me.Name != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s", me.Name, me.Message))
			continue
		}
		msgs = append(msgs, me.Message)
	}
	return fmt.Sprintf("query returned %d module error(s): %s", len(e.Errors), strings.Join(msgs, "; "))
}

func IsModuleErrorResult(err error) bool {
	var e ModuleErrorResult
	return errors.As(err, &e)
}

// InvalidResponseError is returned when a response bound witness fails validation.
type InvalidResponseError struct {
	Err error
}

func (e InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid response: %v", e.Err)
}

func (e InvalidResponseError) Unwrap() error {
	return e.Err
}

func IsInvalidResponseError(err error) bool {
	var e InvalidResponseError
	return errors.As(err, &e)
}

// Wrapper sends queries to a module on behalf of an account, validates the responses and
// surfaces inline module errors as errors.
type Wrapper struct {
	module  module.Module
	account *crypto.Account
}

// NewWrapper creates a wrapper signing with account. A nil account sends unsigned queries.
func NewWrapper(m module.Module, account *crypto.Account) *Wrapper {
	return &Wrapper{module: m, account: account}
}

func (w *Wrapper) Module() module.Module {
	return w.module
}

func (w *Wrapper) Address() crypto.Address {
	return w.module.Address()
}

// Send binds and dispatches a query. When the response carries module errors the response is
// returned together with a ModuleErrorResult.
func (w *Wrapper) Send(ctx context.Context, query payload.Payload, supporting ...payload.Payload) (*boundwitness.BoundWitness, []payload.Payload, error) {
	opts := []BindOption{WithPayloads(supporting...)}
	if w.account != nil {
		opts = append(opts, WithSigners(w.account))
	}
	bw, payloads, err := Bind(query, opts...)
	if err != nil {
		return nil, nil, err
	}

	response, results, err := w.module.Query(ctx, bw, payloads)
	if err != nil {
		return nil, nil, fmt.Errorf("could not query %s: %w", w.module.Address(), err)
	}

	if errs := boundwitness.Validate(response); len(errs) > 0 {
		var merr *multierror.Error
		merr = multierror.Append(merr, errs...)
		return nil, nil, InvalidResponseError{Err: merr}
	}

	if moduleErrs := payload.ModuleErrors(results); len(moduleErrs) > 0 {
		return response, results, ModuleErrorResult{Errors: moduleErrs}
	}
	return response, results, nil
}

// Discover sends a discover query.
func (w *Wrapper) Discover(ctx context.Context) ([]payload.Payload, error) {
	_, results, err := w.Send(ctx, New(module.DiscoverQuerySchema, nil))
	if err != nil {
		return nil, err
	}
	return results, nil
}
