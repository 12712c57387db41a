package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
	"github.com/witnessnet/witnessnet/module/archivist"
	"github.com/witnessnet/witnessnet/module/base"
	"github.com/witnessnet/witnessnet/module/bridge"
	"github.com/witnessnet/witnessnet/module/diviner"
	"github.com/witnessnet/witnessnet/module/metrics"
	"github.com/witnessnet/witnessnet/module/node"
	"github.com/witnessnet/witnessnet/module/sentinel"
	"github.com/witnessnet/witnessnet/module/util"
	"github.com/witnessnet/witnessnet/module/witness"
	storage "github.com/witnessnet/witnessnet/storage/badger"
)

const (
	dbTypeArchivist = "archivist"
	dbTypeState     = "state"
)

// Collectors are the metrics every built module reports to.
type Collectors struct {
	Query     module.QueryMetrics
	Resolver  module.ResolverMetrics
	Archivist module.ArchivistMetrics
}

// Built is the result of building a manifest.
type Built struct {
	Root *node.Node

	// Modules lists every module with a lifecycle, the root node included.
	Modules []module.Lifecycle
	Runners []*sentinel.Runner
	Bridges []*bridge.HTTPBridge

	// Closers release the databases opened for the modules.
	Closers []io.Closer
}

// Close closes every database.
func (b *Built) Close() error {
	var merr *multierror.Error
	for _, c := range b.Closers {
		if err := c.Close(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	b.Closers = nil
	return merr.ErrorOrNil()
}

// Builder creates the modules of a manifest and wires them into a node tree.
type Builder struct {
	log        zerolog.Logger
	manifest   *Manifest
	datadir    string
	collectors Collectors

	wallet      *crypto.HDWallet
	accountOpts []crypto.AccountOption
	next        int
	progress    util.ProgressFunc
	built       *Built
}

// NewBuilder returns a builder for the manifest. Without a data directory no module may be
// persistent, and account chains restart on every run.
func NewBuilder(log zerolog.Logger, manifest *Manifest, datadir string, collectors Collectors) *Builder {
	noop := metrics.NewNoopCollector()
	if collectors.Query == nil {
		collectors.Query = noop
	}
	if collectors.Resolver == nil {
		collectors.Resolver = noop
	}
	if collectors.Archivist == nil {
		collectors.Archivist = noop
	}
	return &Builder{
		log:        log,
		manifest:   manifest,
		datadir:    datadir,
		collectors: collectors,
	}
}

// Build creates every module. Databases opened before a failure are closed.
func (b *Builder) Build(ctx context.Context) (built *Built, err error) {
	b.built = &Built{}
	b.next = 0
	defer func() {
		if err != nil {
			_ = b.built.Close()
		}
	}()

	if b.datadir != "" {
		db, err := storage.InitDB(b.log, filepath.Join(b.datadir, dbTypeState), dbTypeState)
		if err != nil {
			return nil, fmt.Errorf("could not open state database: %w", err)
		}
		b.built.Closers = append(b.built.Closers, db)
		b.accountOpts = append(b.accountOpts, crypto.WithPreviousHashStore(storage.NewPreviousHashes(db)))
	}

	if b.manifest.Mnemonic == "" {
		b.log.Warn().Msg("no mnemonic configured, module addresses change on every start")
		b.wallet, err = crypto.NewRandomHDWallet(b.accountOpts...)
	} else {
		b.wallet, err = crypto.NewHDWalletFromMnemonic(b.manifest.Mnemonic, b.manifest.Path, b.accountOpts...)
	}
	if err != nil {
		return nil, fmt.Errorf("could not create root account: %w", err)
	}

	b.progress = util.LogProgress(b.log, "modules built", countModules(&b.manifest.Node))

	root, err := b.build(ctx, &b.manifest.Node, nil)
	if err != nil {
		return nil, err
	}
	b.built.Root = root.(*node.Node)

	for _, bm := range b.manifest.Bridges {
		hb, err := bridge.NewHTTPBridge(b.log, bridge.ClientConfig{
			URL:        bm.URL,
			Timeout:    bm.Timeout,
			MaxRetries: bm.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
		// children resolve through the up resolver of the root
		b.built.Root.UpResolver().Add(hb)
		b.built.Bridges = append(b.built.Bridges, hb)
	}

	return b.built, nil
}

// build creates the module described by mm. Parents lists the names of the enclosing nodes.
func (b *Builder) build(ctx context.Context, mm *ModuleManifest, parents []string) (module.Module, error) {
	path := append(append([]string(nil), parents...), mm.Name)
	at := strings.Join(path, "/")

	account, err := b.account(mm, parents == nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", at, err)
	}
	config, err := moduleConfig(mm)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", at, err)
	}

	log := b.log
	opts := []base.Option{
		base.WithMetrics(b.collectors.Query),
		base.WithResolverMetrics(b.collectors.Resolver),
	}

	var m module.Module
	switch mm.Kind {
	case KindNode:
		n, err := node.New(log, account, config, opts...)
		if err != nil {
			return nil, err
		}
		for i := range mm.Modules {
			child, err := b.build(ctx, &mm.Modules[i], path)
			if err != nil {
				return nil, err
			}
			if err := n.Register(child); err != nil {
				return nil, fmt.Errorf("%s: could not register %s: %w", at, module.Name(child), err)
			}
			if _, err := n.Attach(ctx, child.Address().Hex(), mm.Modules[i].External); err != nil {
				return nil, fmt.Errorf("%s: could not attach %s: %w", at, module.Name(child), err)
			}
		}
		m = n

	case KindArchivist:
		m, err = b.archivist(mm, at, account, config, opts)

	case KindTimestampWitness:
		m, err = witness.NewTimestamp(log, account, config, opts...)

	case KindAdhocWitness:
		m, err = witness.NewAdhoc(log, account, config, opts...)

	case KindSentinel:
		var s *sentinel.Sentinel
		s, err = sentinel.New(log, account, config, opts...)
		if err == nil && len(mm.Automations) > 0 {
			err = b.automate(s, mm.Automations)
		}
		m = s

	case KindPayloadDiviner:
		m, err = diviner.NewPayload(log, account, config, opts...)

	case KindAddressHistoryDiviner:
		m, err = diviner.NewAddressHistory(log, account, config, opts...)

	default:
		err = fmt.Errorf("unknown module kind %q", mm.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", at, err)
	}

	if lc, ok := m.(module.Lifecycle); ok {
		b.built.Modules = append(b.built.Modules, lc)
	}
	b.progress(1)
	b.log.Debug().
		Str("module", at).
		Str("kind", mm.Kind).
		Str("address", m.Address().Hex()).
		Msg("module built")
	return m, nil
}

func (b *Builder) archivist(mm *ModuleManifest, at string, account *crypto.Account, config module.Config, opts []base.Option) (*archivist.Archivist, error) {
	if !mm.Persistent {
		return archivist.NewMemory(b.log, b.collectors.Archivist, account, config, opts...)
	}
	if b.datadir == "" {
		return nil, fmt.Errorf("persistent archivist needs a data directory")
	}

	db, err := storage.InitDB(b.log, filepath.Join(b.datadir, "archivists", at), dbTypeArchivist)
	if err != nil {
		return nil, err
	}
	b.built.Closers = append(b.built.Closers, db)
	store := archivist.NewPersistentStore(storage.NewPayloads(db))
	return archivist.New(b.log, b.collectors.Archivist, account, config, store, opts...)
}

func (b *Builder) automate(s *sentinel.Sentinel, automations []AutomationManifest) error {
	now := time.Now()
	converted := make([]sentinel.Automation, 0, len(automations))
	for _, a := range automations {
		converted = append(converted, sentinel.Automation{
			Interval:  a.Interval,
			Start:     now.Add(a.Delay),
			Remaining: a.Remaining,
		})
	}

	log := b.log.With().Str("sentinel", module.Name(s)).Logger()
	onResult := func(payloads []payload.Payload, err error) {
		if err != nil {
			log.Warn().Err(err).Msg("automated report failed")
			return
		}
		log.Info().Int("payloads", len(payloads)).Msg("automated report")
	}

	runner, err := sentinel.NewRunner(b.log, s, onResult, converted...)
	if err != nil {
		return err
	}
	b.built.Runners = append(b.built.Runners, runner)
	return nil
}

// account derives the account of a module. The root node uses the root wallet.
func (b *Builder) account(mm *ModuleManifest, root bool) (*crypto.Account, error) {
	if root {
		return b.wallet.Account, nil
	}
	path := mm.Path
	if path == "" {
		path = strconv.Itoa(b.next)
		b.next++
	}
	w, err := b.wallet.DerivePath(path, b.accountOpts...)
	if err != nil {
		return nil, err
	}
	return w.Account, nil
}

// moduleConfig reads the config of a module as if it were a config payload.
func moduleConfig(mm *ModuleManifest) (module.Config, error) {
	fields := make(map[string]interface{}, len(mm.Config)+1)
	for k, v := range mm.Config {
		fields[k] = v
	}
	if mm.Name != "" {
		fields["name"] = mm.Name
	}
	return module.ConfigFromPayload(payload.New(configSchemas[mm.Kind], fields))
}

func countModules(mm *ModuleManifest) int {
	n := 1
	for i := range mm.Modules {
		n += countModules(&mm.Modules[i])
	}
	return n
}
