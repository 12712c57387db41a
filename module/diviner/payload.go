package diviner

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/rs/zerolog"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/encoding"
	"github.com/witnessnet/witnessnet/model/hash"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
	"github.com/witnessnet/witnessnet/module/base"
)

const (
	PayloadConfigSchema = "network.xyo.diviner.payload.config"
	PayloadQuerySchema  = "network.xyo.diviner.payload.query"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// PayloadQuery selects archived payloads. Fields of the query payload besides the ones below
// must be equal in every payload returned.
type PayloadQuery struct {
	Schema  string     `json:"schema"`
	Schemas []string   `json:"schemas,omitempty"`
	Hash    *hash.Hash `json:"hash,omitempty"`
	// Limit caps the number of results. Zero means the diviner default.
	Limit int `json:"limit,omitempty"`
	// Offset skips that many matches.
	Offset int `json:"offset,omitempty"`
	// Order is asc for archive order or desc, the default, for most recent first.
	Order string `json:"order,omitempty"`
}

var payloadQueryFields = map[string]struct{}{
	"schema":  {},
	"schemas": {},
	"hash":    {},
	"limit":   {},
	"offset":  {},
	"order":   {},
}

// PayloadDivination answers payload queries from the payloads archived by the diviner's
// archivists. Without a payload query it returns nothing.
type PayloadDivination struct {
	diviner *Diviner
	limit   int
}

// NewPayload creates a diviner answering payload queries. The config may set the default
// limit under "limit".
func NewPayload(log zerolog.Logger, account *crypto.Account, config module.Config, opts ...base.Option) (*Diviner, error) {
	if config.Schema == "" {
		config.Schema = PayloadConfigSchema
	}
	var c struct {
		Limit int `json:"limit,omitempty"`
	}
	err := config.DecodeExtra(&c)
	if err != nil {
		return nil, module.NewInvalidConfigErrorf("limit", "could not decode payload diviner config: %v", err)
	}
	if c.Limit < 0 {
		return nil, module.NewInvalidConfigErrorf("limit", "negative limit %d", c.Limit)
	}
	if c.Limit == 0 {
		c.Limit = defaultResultLimit
	}

	divination := &PayloadDivination{limit: c.Limit}
	d, err := New(log, account, config, divination, opts...)
	if err != nil {
		return nil, err
	}
	divination.diviner = d
	return d, nil
}

func (p *PayloadDivination) Divine(ctx context.Context, payloads []payload.Payload) ([]payload.Payload, error) {
	queries := payload.FilterBySchema(payloads, PayloadQuerySchema)
	if len(queries) == 0 {
		return nil, nil
	}
	// TODO: answer every payload query supplied, not only the first.
	var q PayloadQuery
	err := queries[0].Decode(&q)
	if err != nil {
		return nil, fmt.Errorf("invalid payload query: %w", err)
	}
	if q.Limit < 0 || q.Offset < 0 {
		return nil, fmt.Errorf("invalid payload query: negative limit or offset")
	}
	switch q.Order {
	case "":
		q.Order = OrderDesc
	case OrderAsc, OrderDesc:
	default:
		return nil, fmt.Errorf("invalid payload query: unknown order %q", q.Order)
	}
	limit := q.Limit
	if limit == 0 {
		limit = p.limit
	}

	match, err := newPayloadMatcher(q, queries[0])
	if err != nil {
		return nil, err
	}

	archived, err := p.diviner.archived(ctx)
	if err != nil {
		return nil, err
	}
	if q.Order == OrderDesc {
		for i, j := 0, len(archived)-1; i < j; i, j = i+1, j-1 {
			archived[i], archived[j] = archived[j], archived[i]
		}
	}

	var out []payload.Payload
	skipped := 0
	for _, candidate := range archived {
		if len(out) == limit {
			break
		}
		if !match(candidate) {
			continue
		}
		if skipped < q.Offset {
			skipped++
			continue
		}
		out = append(out, candidate)
	}
	return out, nil
}

// newPayloadMatcher builds the predicate selecting the payloads a query asks for.
func newPayloadMatcher(q PayloadQuery, raw payload.Payload) (func(payload.Payload) bool, error) {
	schemas := make(map[string]struct{}, len(q.Schemas))
	for _, s := range q.Schemas {
		schemas[s] = struct{}{}
	}

	fields := make(map[string]interface{})
	for k, v := range raw {
		if _, known := payloadQueryFields[k]; known || strings.HasPrefix(k, payload.MetaPrefix) {
			continue
		}
		n, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("invalid payload query field %s: %w", k, err)
		}
		fields[k] = n
	}

	return func(p payload.Payload) bool {
		if len(schemas) > 0 {
			if _, ok := schemas[p.Schema()]; !ok {
				return false
			}
		}
		if q.Hash != nil {
			h, err := p.Hash()
			if err != nil || h != *q.Hash {
				return false
			}
		}
		for k, want := range fields {
			v, ok := p[k]
			if !ok {
				return false
			}
			got, err := normalize(v)
			if err != nil || !reflect.DeepEqual(got, want) {
				return false
			}
		}
		return true
	}, nil
}

// normalize gives v the shape it has once serialized, so that values built in process and
// decoded values compare equal.
func normalize(v interface{}) (interface{}, error) {
	data, err := encoding.DefaultEncoder.Encode(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	err = encoding.DefaultEncoder.Decode(data, &out)
	return out, err
}
