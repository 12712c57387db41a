package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/witnessnet/witnessnet/module/component"
	"github.com/witnessnet/witnessnet/module/metrics"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the modules of a manifest",
	RunE:  runNode,
}

func init() {
	addNodeFlags(runCmd.Flags())
}

func addNodeFlags(flags *pflag.FlagSet) {
	flags.String("manifest", "node.yaml", "manifest of the node modules")
	flags.String("listen", ":8080", "address of the bridge server, empty to not expose the node")
	flags.String("metrics", ":9090", "address of the metrics server, empty to disable metrics")
	flags.String("datadir", "", "directory of the persistent archivists and account chains")
	flags.Duration("shutdown-timeout", 0, "grace period of the bridge server at shutdown")
}

func runNode(cmd *cobra.Command, _ []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}

	manifest, err := LoadManifest(viper.GetString("manifest"))
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	collectors := Collectors{
		Query:     metrics.NewQueryCollector(registry),
		Resolver:  metrics.NewResolverCollector(registry),
		Archivist: metrics.NewArchivistCollector(registry),
	}
	config := NodeConfig{
		ListenAddress:   viper.GetString("listen"),
		MetricsAddress:  viper.GetString("metrics"),
		ShutdownTimeout: viper.GetDuration("shutdown-timeout"),
	}
	builder := NewBuilder(log, manifest, viper.GetString("datadir"), collectors)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory := func() (component.Component, error) {
		built, err := builder.Build(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not build node: %w", err)
		}
		wn := NewWitnessNode(log, built, config, registry)
		go func() {
			select {
			case <-wn.Ready():
				log.Info().Str("address", built.Root.Address().Hex()).Msg("witness node startup complete")
			case <-wn.Done():
			}
		}()
		return wn, nil
	}

	err = component.RunComponent(ctx, factory, func(err error) component.ErrorHandlingResult {
		log.Error().Err(err).Msg("witness node failed")
		return component.ErrorHandlingStop
	})
	if errors.Is(err, context.Canceled) {
		log.Info().Msg("witness node shutdown complete")
		return nil
	}
	return err
}
