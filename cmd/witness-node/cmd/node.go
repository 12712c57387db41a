package cmd

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/witnessnet/witnessnet/module/bridge"
	"github.com/witnessnet/witnessnet/module/component"
	"github.com/witnessnet/witnessnet/module/irrecoverable"
	"github.com/witnessnet/witnessnet/module/metrics"
	"github.com/witnessnet/witnessnet/module/util"
)

// NodeConfig holds the network settings of a running witness node.
type NodeConfig struct {
	// ListenAddress of the bridge server. The node is not exposed when empty.
	ListenAddress string

	// MetricsAddress of the metrics server. Metrics are not served when empty.
	MetricsAddress string

	ShutdownTimeout time.Duration
}

// WitnessNode runs the modules of a built manifest, the bridge server exposing the root node,
// the metrics server and the sentinel automations. Servers and automations start once every
// module is started.
type WitnessNode struct {
	*component.ComponentManager
	log     zerolog.Logger
	built   *Built
	modules *component.ComponentManager
	server  *bridge.Server
}

var _ component.Component = (*WitnessNode)(nil)

func NewWitnessNode(log zerolog.Logger, built *Built, config NodeConfig, gatherer prometheus.Gatherer) *WitnessNode {
	wn := &WitnessNode{
		log:   log.With().Str("component", "witness_node").Logger(),
		built: built,
	}

	modules := component.NewComponentManagerBuilder()
	for _, m := range built.Modules {
		modules.AddWorker(component.LifecycleWorker(m))
	}
	wn.modules = modules.Build()

	cm := component.NewComponentManagerBuilder().AddWorker(wn.runModules)

	if config.ListenAddress != "" {
		wn.server = bridge.NewServer(log, built.Root, bridge.ServerConfig{
			ListenAddress:   config.ListenAddress,
			ShutdownTimeout: config.ShutdownTimeout,
		})
		cm.AddWorker(wn.afterModules(wn.server))
	}
	if config.MetricsAddress != "" && gatherer != nil {
		cm.AddWorker(wn.afterModules(metrics.NewServer(log, config.MetricsAddress, gatherer)))
	}
	for _, r := range built.Runners {
		cm.AddWorker(wn.afterModules(r))
	}

	wn.ComponentManager = cm.Build()
	return wn
}

// Server returns the bridge server, or nil when the node is not exposed.
func (wn *WitnessNode) Server() *bridge.Server {
	return wn.server
}

// runModules starts every module, and closes the databases once they all stopped.
func (wn *WitnessNode) runModules(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	wn.modules.Start(ctx)
	if util.WaitReady(ctx, wn.modules.Ready()) == nil {
		wn.log.Info().Int("modules", len(wn.built.Modules)).Msg("modules started")
		ready()
	}

	<-wn.modules.Done()
	if err := wn.built.Close(); err != nil {
		wn.log.Error().Err(err).Msg("could not close databases")
	}
}

// afterModules starts c once every module is started.
func (wn *WitnessNode) afterModules(c component.Component) component.ComponentWorker {
	return func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
		if util.WaitReady(ctx, wn.modules.Ready()) != nil {
			return
		}
		c.Start(ctx)
		if util.WaitReady(ctx, c.Ready()) == nil {
			ready()
		}
		<-c.Done()
	}
}
