package bridge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/encoding"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultRetryBase  = 100 * time.Millisecond
	DefaultRetryCap   = 2 * time.Second
	DefaultMaxRetries = 3
)

// ClientConfig configures an HTTPBridge.
type ClientConfig struct {
	// URL of the bridged node.
	URL string

	// Timeout bounds each attempt of a call.
	Timeout time.Duration

	// RetryBase is the first backoff delay, doubled on every retry up to RetryCap.
	RetryBase  time.Duration
	RetryCap   time.Duration
	MaxRetries uint64
}

// HTTPBridge reaches the modules of a remote node through its bridge server. It is a
// module.Resolver over the modules the remote node exposes.
type HTTPBridge struct {
	log    zerolog.Logger
	url    *url.URL
	client *http.Client
	config ClientConfig

	mu      sync.RWMutex
	queries map[crypto.Address][]string
}

var _ module.Resolver = (*HTTPBridge)(nil)

func NewHTTPBridge(log zerolog.Logger, config ClientConfig) (*HTTPBridge, error) {
	u, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid bridge url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid bridge url %q: unsupported scheme", config.URL)
	}

	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.RetryBase == 0 {
		config.RetryBase = DefaultRetryBase
	}
	if config.RetryCap == 0 {
		config.RetryCap = DefaultRetryCap
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}

	return &HTTPBridge{
		log:     log.With().Str("component", "http_bridge").Str("url", u.String()).Logger(),
		url:     u,
		client:  &http.Client{},
		config:  config,
		queries: make(map[crypto.Address][]string),
	}, nil
}

// TargetQuery sends a query to the module at address and returns the response it signed.
func (b *HTTPBridge) TargetQuery(ctx context.Context, address crypto.Address, query *boundwitness.BoundWitness, payloads []payload.Payload) (*boundwitness.BoundWitness, []payload.Payload, error) {
	body, err := encodeEnvelope(query, payloads)
	if err != nil {
		return nil, nil, fmt.Errorf("could not encode query: %w", err)
	}

	data, err := b.do(ctx, http.MethodPost, address.Hex(), body)
	if err != nil {
		return nil, nil, err
	}

	result, results, err := decodeEnvelope(data)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid response from %s: %w", address, err)
	}
	if err := verifyResponse(address, result); err != nil {
		return nil, nil, err
	}
	return result, results, nil
}

// verifyResponse checks that the response is a valid bound witness signed by the target.
func verifyResponse(address crypto.Address, result *boundwitness.BoundWitness) error {
	if errs := boundwitness.Validate(result); len(errs) > 0 {
		var merr *multierror.Error
		merr = multierror.Append(merr, errs...)
		return fmt.Errorf("%w: from %s: %v", ErrUntrustedResponse, address, merr)
	}
	if _, signed := result.PreviousHash(address); !signed {
		return fmt.Errorf("%w: %s did not sign the response", ErrUntrustedResponse, address)
	}
	return nil
}

// TargetDiscover returns the discover payloads of the module at address, or of the root node
// when address is nil. The query schemas advertised are remembered for TargetQueryable.
func (b *HTTPBridge) TargetDiscover(ctx context.Context, address *crypto.Address) ([]payload.Payload, error) {
	path := ""
	if address != nil {
		path = address.Hex()
	}

	data, err := b.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var payloads []payload.Payload
	err = encoding.DefaultEncoder.Decode(data, &payloads)
	if err != nil {
		return nil, fmt.Errorf("invalid discover response: %w", err)
	}

	self, queries, err := describe(payloads)
	if err != nil {
		return nil, err
	}
	if address != nil && self != *address {
		return nil, fmt.Errorf("discovered address %s does not match target %s", self, address)
	}

	b.mu.Lock()
	b.queries[self] = queries
	b.mu.Unlock()

	return payloads, nil
}

// TargetQueries returns the query schemas last discovered for address.
func (b *HTTPBridge) TargetQueries(address crypto.Address) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.queries[address]...)
}

// TargetQueryable reports whether the module at address advertised the schema of the query. It
// never reaches the network; the target must have been discovered.
func (b *HTTPBridge) TargetQueryable(address crypto.Address, query *boundwitness.BoundWitness, payloads []payload.Payload) bool {
	w, err := boundwitness.WrapQuery(query, payloads)
	if err != nil {
		return false
	}
	q, err := w.Query()
	if err != nil {
		return false
	}
	for _, schema := range b.TargetQueries(address) {
		if schema == q.Schema() {
			return true
		}
	}
	return false
}

// TargetResolve discovers the remote root node, creates a proxy for every address it advertises
// and returns the proxies matching the filter.
func (b *HTTPBridge) TargetResolve(ctx context.Context, filter module.Filter) ([]module.Module, error) {
	discovered, err := b.TargetDiscover(ctx, nil)
	if err != nil {
		return nil, err
	}

	var proxies []module.Module
	for _, p := range payload.FilterBySchema(discovered, payload.AddressSchema) {
		var announced payload.Address
		if err := p.Decode(&announced); err != nil {
			b.log.Warn().Err(err).Msg("skipping malformed address payload")
			continue
		}
		proxy, err := NewProxy(ctx, b, announced.Address)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			b.log.Warn().Err(err).Str("address", announced.Address.Hex()).Msg("could not create proxy")
			continue
		}
		proxies = append(proxies, proxy)
	}
	return filter.Apply(proxies), nil
}

// Resolve is TargetResolve, so a bridge can be added to the resolvers of a local module.
func (b *HTTPBridge) Resolve(ctx context.Context, filter module.Filter) ([]module.Module, error) {
	return b.TargetResolve(ctx, filter)
}

func (b *HTTPBridge) do(ctx context.Context, method string, path string, body []byte) ([]byte, error) {
	backoff, err := retry.NewExponential(b.config.RetryBase)
	if err != nil {
		return nil, fmt.Errorf("failed to create retry mechanism: %w", err)
	}
	backoff = retry.WithCappedDuration(b.config.RetryCap, backoff)
	backoff = retry.WithJitterPercent(10, backoff)
	backoff = retry.WithMaxRetries(b.config.MaxRetries, backoff)

	target := b.url.JoinPath(path).String()
	attempts := 0

	var out []byte
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		data, err := b.attempt(ctx, method, target, body)
		if err != nil {
			if isRetryable(err) && ctx.Err() == nil {
				b.log.Debug().Err(err).Int("attempt", attempts).Str("target", target).Msg("retrying bridge call")
				return retry.RetryableError(err)
			}
			return err
		}
		out = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *HTTPBridge) attempt(ctx context.Context, method string, target string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, transportError{err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError{err}
	}

	if resp.StatusCode != http.StatusOK {
		remote := RemoteError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var er errorResponse
		if encoding.DefaultEncoder.Decode(data, &er) == nil && er.Kind != "" {
			remote.Kind = er.Kind
			remote.Message = er.Message
		}
		return nil, remote
	}
	return data, nil
}

type transportError struct {
	err error
}

func (e transportError) Error() string {
	return fmt.Sprintf("bridge transport error: %v", e.err)
}

func (e transportError) Unwrap() error {
	return e.err
}

// isRetryable reports whether a failed attempt may succeed when repeated: transport failures
// and server errors, except a target that is not started.
func isRetryable(err error) bool {
	switch e := err.(type) {
	case transportError:
		return true
	case RemoteError:
		return e.Status >= http.StatusInternalServerError && e.Kind != kindNotStarted
	}
	return false
}

// describe extracts the address and the query schemas from discover payloads.
func describe(payloads []payload.Payload) (crypto.Address, []string, error) {
	var self *crypto.Address
	var queries []string
	for _, p := range payloads {
		switch p.Schema() {
		case payload.AddressSchema:
			if self != nil {
				continue
			}
			var a payload.Address
			if err := p.Decode(&a); err != nil {
				return crypto.Address{}, nil, err
			}
			self = &a.Address
		case payload.QuerySchema:
			var q payload.Query
			if err := p.Decode(&q); err != nil {
				return crypto.Address{}, nil, err
			}
			queries = append(queries, q.Query)
		}
	}
	if self == nil {
		return crypto.Address{}, nil, fmt.Errorf("discover response has no address")
	}
	return *self, queries, nil
}
