package diviner

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/hash"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
	"github.com/witnessnet/witnessnet/module/base"
)

const (
	AddressHistoryConfigSchema = "network.xyo.diviner.address.history.config"
	AddressHistoryQuerySchema  = "network.xyo.diviner.address.history.query"
)

// AddressHistoryQuery asks for the chain of records signed by an address, most recent first.
type AddressHistoryQuery struct {
	Schema  string          `json:"schema"`
	Address *crypto.Address `json:"address,omitempty"`
	// Limit caps the number of records. Zero means the diviner default.
	Limit int `json:"limit,omitempty"`
	// Offset is the hash of the record the walk starts from. Without it the walk starts from
	// the most recent record.
	Offset *hash.Hash `json:"offset,omitempty"`
}

// AddressHistoryDivination walks the previous hashes of an address through the bound
// witnesses archived by the diviner's archivists.
type AddressHistoryDivination struct {
	diviner *Diviner
	address *crypto.Address
	limit   int
}

// NewAddressHistory creates a diviner answering address history queries. The config may set
// the address used by queries that name none under "address", and the default limit under
// "limit". Without a query payload the configured address is walked.
func NewAddressHistory(log zerolog.Logger, account *crypto.Account, config module.Config, opts ...base.Option) (*Diviner, error) {
	if config.Schema == "" {
		config.Schema = AddressHistoryConfigSchema
	}
	var c struct {
		Address *crypto.Address `json:"address,omitempty"`
		Limit   int             `json:"limit,omitempty"`
	}
	err := config.DecodeExtra(&c)
	if err != nil {
		return nil, module.NewInvalidConfigErrorf("address", "could not decode address history diviner config: %v", err)
	}
	if c.Limit < 0 {
		return nil, module.NewInvalidConfigErrorf("limit", "negative limit %d", c.Limit)
	}
	if c.Limit == 0 {
		c.Limit = defaultResultLimit
	}

	divination := &AddressHistoryDivination{address: c.Address, limit: c.Limit}
	d, err := New(log, account, config, divination, opts...)
	if err != nil {
		return nil, err
	}
	divination.diviner = d
	return d, nil
}

func (a *AddressHistoryDivination) Divine(ctx context.Context, payloads []payload.Payload) ([]payload.Payload, error) {
	q := AddressHistoryQuery{Schema: AddressHistoryQuerySchema}
	if queries := payload.FilterBySchema(payloads, AddressHistoryQuerySchema); len(queries) > 0 {
		err := queries[0].Decode(&q)
		if err != nil {
			return nil, fmt.Errorf("invalid address history query: %w", err)
		}
	}
	if q.Address == nil {
		q.Address = a.address
	}
	if q.Address == nil {
		return nil, fmt.Errorf("invalid address history query: missing address")
	}
	if q.Limit < 0 {
		return nil, fmt.Errorf("invalid address history query: negative limit %d", q.Limit)
	}
	limit := q.Limit
	if limit == 0 {
		limit = a.limit
	}

	archived, err := a.diviner.archived(ctx)
	if err != nil {
		return nil, err
	}
	chain, err := newAddressChain(*q.Address, archived)
	if err != nil {
		return nil, err
	}

	next, ok := chain.head()
	if q.Offset != nil {
		next, ok = *q.Offset, true
	}

	var out []payload.Payload
	for ok && len(out) < limit {
		link, found := chain.records[next]
		if !found {
			break
		}
		out = append(out, link.payload)
		prev, _ := link.bw.PreviousHash(chain.address)
		if prev == nil {
			break
		}
		next = *prev
	}
	return out, nil
}

type chainLink struct {
	bw      *boundwitness.BoundWitness
	payload payload.Payload
	// position in archive order, breaking timestamp ties
	position int
}

// addressChain indexes the archived records signed by one address.
type addressChain struct {
	address    crypto.Address
	records    map[hash.Hash]chainLink
	referenced hash.Set
}

func newAddressChain(address crypto.Address, archived []payload.Payload) (*addressChain, error) {
	c := &addressChain{
		address:    address,
		records:    make(map[hash.Hash]chainLink),
		referenced: make(hash.Set),
	}
	for i, p := range payload.FilterBySchema(archived, boundwitness.Schema) {
		bw, err := boundwitness.FromPayload(p)
		if err != nil {
			return nil, fmt.Errorf("invalid archived record: %w", err)
		}
		prev, signed := bw.PreviousHash(address)
		if !signed {
			continue
		}
		h, err := bw.Hash()
		if err != nil {
			return nil, err
		}
		c.records[h] = chainLink{bw: bw, payload: p, position: i}
		if prev != nil {
			c.referenced[*prev] = struct{}{}
		}
	}
	return c, nil
}

// head returns the most recent record: one no other record points back to. When the chain
// forks the record with the latest timestamp wins, then the one archived last.
func (c *addressChain) head() (hash.Hash, bool) {
	var (
		best  hash.Hash
		found bool
	)
	for h, link := range c.records {
		if c.referenced.Has(h) {
			continue
		}
		if !found || c.later(link, c.records[best]) {
			best, found = h, true
		}
	}
	return best, found
}

func (c *addressChain) later(a, b chainLink) bool {
	at, bt := timestamp(a.bw), timestamp(b.bw)
	if at != bt {
		return at > bt
	}
	return a.position > b.position
}

func timestamp(bw *boundwitness.BoundWitness) int64 {
	if bw.Timestamp == nil {
		return 0
	}
	return *bw.Timestamp
}
