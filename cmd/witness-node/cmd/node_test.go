package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/witnessnet/witnessnet/module"
	"github.com/witnessnet/witnessnet/module/archivist"
	"github.com/witnessnet/witnessnet/module/bridge"
	"github.com/witnessnet/witnessnet/module/irrecoverable"
	"github.com/witnessnet/witnessnet/utils/unittest"
)

const automatedManifest = `
node:
  name: root
  modules:
    - name: archive
      kind: archivist
      external: true
    - name: clock
      kind: witness.timestamp
    - name: reporter
      kind: sentinel
      config:
        witnesses: [clock]
        archivists: [archive]
      automations:
        - interval: 10ms
          remaining: 2
`

func TestWitnessNode(t *testing.T) {
	built := build(t, automatedManifest, "")
	wn := NewWitnessNode(unittest.Logger(), built, NodeConfig{ListenAddress: "127.0.0.1:0"}, nil)

	ctx, cancel := irrecoverable.NewMockSignalerContextWithCancel(t, context.Background())
	wn.Start(ctx)
	unittest.RequireCloseBefore(t, wn.Ready(), 2*time.Second, "witness node not ready")

	for _, m := range built.Modules {
		assert.Equal(t, module.StateStarted, m.State())
	}

	client, err := bridge.NewHTTPBridge(unittest.Logger(), bridge.ClientConfig{
		URL: "http://" + wn.Server().Address().String(),
	})
	require.NoError(t, err)
	found, err := client.Resolve(context.Background(), module.Filter{Name: []string{"archive"}})
	require.NoError(t, err)
	require.Len(t, found, 1)

	remote, err := archivist.NewWrapper(found[0], unittest.AccountFixture(t))
	require.NoError(t, err)

	// two automated reports of a bound witness and a timestamp each
	require.Eventually(t, func() bool {
		all, err := remote.All(context.Background())
		return err == nil && len(all) == 4
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	unittest.RequireCloseBefore(t, wn.Done(), 5*time.Second, "witness node not stopped")
	for _, m := range built.Modules {
		assert.Equal(t, module.StateStopped, m.State())
	}
}
