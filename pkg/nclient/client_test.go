package nclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distfs/distfs/pkg/naming"
	"github.com/distfs/distfs/pkg/path"
	"github.com/distfs/distfs/pkg/retry"
	"github.com/distfs/distfs/pkg/rmi"
)

func startCore(t *testing.T) *naming.Core {
	t.Helper()
	core := naming.NewCore()
	require.NoError(t, core.Start("127.0.0.1:0", "127.0.0.1:0"))
	t.Cleanup(func() { _ = core.Stop() })
	return core
}

func fastRetryConfig() retry.Config {
	c := retry.DefaultConfig()
	c.MaxAttempts = 3
	c.InitialDelay = 5 * time.Millisecond
	c.MaxDelay = 20 * time.Millisecond
	c.Jitter = false
	return c
}

func TestClientCreateDirectoryAndList(t *testing.T) {
	core := startCore(t)
	client, err := New(core.ServiceAddress(), fastRetryConfig())
	require.NoError(t, err)

	p, err := path.Parse("/docs")
	require.NoError(t, err)

	created, err := client.CreateDirectory(p)
	require.NoError(t, err)
	assert.True(t, created)

	isDir, err := client.IsDirectory(p)
	require.NoError(t, err)
	assert.True(t, isDir)

	names, err := client.List(path.Root())
	require.NoError(t, err)
	assert.Contains(t, names, "docs")

	assert.Equal(t, StateConnected, client.State())
}

func TestClientRegisterAndGetStorage(t *testing.T) {
	core := startCore(t)
	client, err := New(core.RegistrationAddress(), fastRetryConfig())
	require.NoError(t, err)

	storageStub := rmi.Stub{InterfaceName: "storage.Storage", Addr: "127.0.0.1:9001"}
	commandStub := rmi.Stub{InterfaceName: "storage.Command", Addr: "127.0.0.1:9001"}
	p, err := path.Parse("/a.txt")
	require.NoError(t, err)

	toDelete, err := client.Register(storageStub, commandStub, []path.Path{p})
	require.NoError(t, err)
	assert.Empty(t, toDelete)

	svcClient, err := New(core.ServiceAddress(), fastRetryConfig())
	require.NoError(t, err)

	stub, err := svcClient.GetStorage(p)
	require.NoError(t, err)
	assert.Equal(t, storageStub, stub)
}

func TestClientDeleteUnknownPathFails(t *testing.T) {
	core := startCore(t)
	client, err := New(core.ServiceAddress(), fastRetryConfig())
	require.NoError(t, err)

	p, err := path.Parse("/missing")
	require.NoError(t, err)

	err = client.Delete(p)
	assert.Error(t, err)
	assert.Equal(t, StateConnected, client.State())
}

func TestClientFailsAfterRetryBudgetOnUnreachableCore(t *testing.T) {
	client, err := New("127.0.0.1:1", fastRetryConfig())
	require.NoError(t, err)

	p, err := path.Parse("/x")
	require.NoError(t, err)

	_, err = client.CreateDirectory(p)
	assert.Error(t, err)
	assert.Equal(t, StateFailed, client.State())
	assert.NotNil(t, client.LastError())
}
