// internal/node/node_test.go
package node

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/tamzrod/mesh-versioner/internal/config"
	"github.com/tamzrod/mesh-versioner/internal/identity"
	"github.com/tamzrod/mesh-versioner/internal/source"
	"github.com/tamzrod/mesh-versioner/internal/status"
	"github.com/tamzrod/mesh-versioner/internal/transport"
	"github.com/tamzrod/mesh-versioner/internal/version"
)

var peer = identity.Address{Type: 1, Bytes: [6]byte{0xc0, 0, 0, 0, 0, 0x99}}

func testConfig(t *testing.T, addr string, mutate func(c *cfg.Config)) *cfg.Config {
	t.Helper()
	c := &cfg.Config{
		Node: cfg.NodeConfig{Address: addr, AddressType: identity.AddressRandomStatic},
		Mesh: cfg.MeshConfig{HandleCount: 3, MinIntervalUs: 2_000},
	}
	if mutate != nil {
		mutate(c)
	}
	require.NoError(t, cfg.Validate(c))
	cfg.Normalize(c)
	return c
}

func build(t *testing.T, c *cfg.Config) *Node {
	t.Helper()
	n, closeNode, err := Build(c, nil)
	require.NoError(t, err)
	t.Cleanup(closeNode)
	return n
}

func TestBuild_RequiresConfig(t *testing.T) {
	_, _, err := Build(nil, nil)
	assert.Error(t, err)
}

func TestStep_PublishesLocalValues(t *testing.T) {
	n := build(t, testConfig(t, "c0:00:00:00:00:01", func(c *cfg.Config) {
		c.Values = []cfg.ValueConfig{{Handle: 1, Data: "on", CharHandle: 42}}
	}))

	n.step()
	assert.Equal(t, []byte("on"), n.Value(1))

	info, err := n.engine.Info(1)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), info.Version)
	assert.True(t, info.Flags.Has(version.FlagUsed|version.FlagInitialized|version.FlagIsOrigin))
	assert.Equal(t, n.Self(), info.Origin)
	assert.Equal(t, uint8(42), info.CharHandle)

	// published once: the next steps leave the version alone
	for i := 0; i < 10; i++ {
		n.step()
	}
	info, _ = n.engine.Info(1)
	assert.Equal(t, uint16(1), info.Version)
}

func TestStep_PeriodicLocalUpdates(t *testing.T) {
	n := build(t, testConfig(t, "c0:00:00:00:00:01", func(c *cfg.Config) {
		c.Values = []cfg.ValueConfig{{Handle: 2, Data: "temp", UpdateEveryMs: 5}}
		c.Core.TickUs = 1_000
	}))

	for i := 0; i < 11; i++ {
		n.step()
	}

	info, err := n.engine.Info(2)
	require.NoError(t, err)
	assert.Equal(t, uint16(3), info.Version, "updates at 1ms, 6ms and 11ms")
	assert.Equal(t, []byte("temp#2"), n.Value(2))
}

func TestStep_SweepQueuesAnnouncement(t *testing.T) {
	n := build(t, testConfig(t, "c0:00:00:00:00:01", func(c *cfg.Config) {
		c.Values = []cfg.ValueConfig{{Handle: 1, Data: "on"}}
	}))

	// first Trickle interval is 2ms, the first window 10ms
	for i := 0; i < 8; i++ {
		n.step()
	}
	assert.GreaterOrEqual(t, n.queue.Len(), 1)
}

func TestStep_TricklePacesRetransmissionsInWindow(t *testing.T) {
	n := build(t, testConfig(t, "c0:00:00:00:00:01", func(c *cfg.Config) {
		c.Values = []cfg.ValueConfig{{Handle: 1, Data: "on"}}
		c.Timeslot.LengthUs = 200_000
		c.Timeslot.PeriodUs = 400_000
		c.Core.TickUs = 1_000
		c.Transport.QueueDepth = 64
	}))

	// intervals of 2, 4, 8, 16, 32 and 64ms start at 1, 3, 7, 15, 31 and
	// 63ms; each sends once before it ends
	for i := 0; i < 150; i++ {
		n.step()
	}
	require.True(t, n.slots.Active(), "still inside the first window")

	assert.Equal(t, 6, n.queue.Len())
	info, err := n.engine.Info(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(128_000), info.Interval)
	assert.Greater(t, info.NextTx, n.now)
}

func TestReceive_AdoptsNewerOnly(t *testing.T) {
	n := build(t, testConfig(t, "c0:00:00:00:00:01", nil))

	require.NoError(t, n.deliver(transport.Frame{Handle: 2, Version: 5, Origin: peer, Payload: []byte("x")}))
	n.step()

	assert.Equal(t, []byte("x"), n.Value(2))
	info, err := n.engine.Info(2)
	require.NoError(t, err)
	assert.Equal(t, uint16(5), info.Version)
	assert.Equal(t, peer, info.Origin)
	assert.True(t, info.Flags.Has(version.FlagUsed|version.FlagInitialized))
	assert.False(t, info.Flags.Has(version.FlagIsOrigin))

	// older version: kept
	require.NoError(t, n.deliver(transport.Frame{Handle: 2, Version: 4, Origin: peer, Payload: []byte("old")}))
	n.step()
	assert.Equal(t, []byte("x"), n.Value(2))

	// newer version: adopted
	require.NoError(t, n.deliver(transport.Frame{Handle: 2, Version: 6, Origin: peer, Payload: []byte("y")}))
	n.step()
	assert.Equal(t, []byte("y"), n.Value(2))
	info, _ = n.engine.Info(2)
	assert.Equal(t, uint16(6), info.Version)
}

func TestApplyReading_PublishesChangesOnly(t *testing.T) {
	n := build(t, testConfig(t, "c0:00:00:00:00:01", nil))
	n.step()

	n.applyReading(source.Reading{Handle: 3, Payload: []byte{0, 1}})
	info, err := n.engine.Info(3)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), info.Version)
	assert.Equal(t, []byte{0, 1}, n.Value(3))

	// same content: no new version
	n.applyReading(source.Reading{Handle: 3, Payload: []byte{0, 1}})
	info, _ = n.engine.Info(3)
	assert.Equal(t, uint16(1), info.Version)

	// failed read: nothing changes
	n.applyReading(source.Reading{Handle: 3, Err: assert.AnError})
	info, _ = n.engine.Info(3)
	assert.Equal(t, uint16(1), info.Version)

	n.applyReading(source.Reading{Handle: 3, Payload: []byte{0, 2}})
	info, _ = n.engine.Info(3)
	assert.Equal(t, uint16(2), info.Version)
	assert.True(t, info.Flags.Has(version.FlagIsOrigin))
}

func TestDeliver_UnknownHandle(t *testing.T) {
	n := build(t, testConfig(t, "c0:00:00:00:00:01", nil))

	assert.Error(t, n.deliver(transport.Frame{Handle: 0}))
	assert.Error(t, n.deliver(transport.Frame{Handle: 4}))
}

func TestSnapshotOf(t *testing.T) {
	s := snapshotOf([]version.Info{{
		Handle:   1,
		Version:  7,
		Flags:    version.FlagUsed | version.FlagIsOrigin,
		Checksum: 0xAABBCCDD,
		Origin:   peer,
	}})

	require.Len(t, s, 1)
	assert.Equal(t, status.ValueSnapshot{
		Handle:     1,
		Flags:      status.FlagUsed | status.FlagIsOrigin,
		Version:    7,
		Checksum:   0xAABBCCDD,
		OriginType: peer.Type,
		Origin:     peer.Bytes,
	}, s[0])
}

func TestTwoNodesConverge(t *testing.T) {
	b := build(t, testConfig(t, "c0:00:00:00:00:02", func(c *cfg.Config) {
		c.Transport.Listen = "127.0.0.1:0"
	}))
	a := build(t, testConfig(t, "c0:00:00:00:00:01", func(c *cfg.Config) {
		c.Transport.Peers = []string{b.ListenAddr().String()}
		c.Values = []cfg.ValueConfig{{Handle: 1, Data: "hello"}}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 2)
	go func() { done <- a.Run(ctx) }()
	go func() { done <- b.Run(ctx) }()

	require.Eventually(t, func() bool {
		return string(b.Value(1)) == "hello"
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	for i := 0; i < 2; i++ {
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatalf("node did not stop")
		}
	}
}
