package naming

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distfs/distfs/pkg/errors"
	"github.com/distfs/distfs/pkg/path"
	"github.com/distfs/distfs/pkg/rmi"
	"github.com/distfs/distfs/pkg/storage"
)

// fakeStorageServer wraps a LocalStorage behind real skeletons so naming
// core tests exercise actual RMI round trips for Create/Delete, not a
// hand-rolled mock.
type fakeStorageServer struct {
	local         *storage.LocalStorage
	storageStub   rmi.Stub
	commandStub   rmi.Stub
	storageSk     *rmi.Skeleton
	commandSk     *rmi.Skeleton
}

var storageIfaceType = reflect.TypeOf((*storage.Storage)(nil)).Elem()

func startFakeStorageServer(t *testing.T) *fakeStorageServer {
	t.Helper()
	local := storage.NewLocalStorage(t.TempDir())

	storageSk, err := rmi.NewSkeleton(storageIfaceType, local, "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, storageSk.Start())
	t.Cleanup(func() { _ = storageSk.Stop() })

	commandSk, err := rmi.NewSkeleton(commandIface, local, "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, commandSk.Start())
	t.Cleanup(func() { _ = commandSk.Stop() })

	storageStub, err := rmi.NewStubFromAddress(storageIfaceType, storageSk.Address())
	require.NoError(t, err)
	commandStub, err := rmi.NewStubFromAddress(commandIface, commandSk.Address())
	require.NoError(t, err)

	return &fakeStorageServer{
		local:       local,
		storageStub: storageStub,
		commandStub: commandStub,
		storageSk:   storageSk,
		commandSk:   commandSk,
	}
}

func startCore(t *testing.T) *Core {
	t.Helper()
	c := NewCore()
	require.NoError(t, c.Start("127.0.0.1:0", "127.0.0.1:0"))
	t.Cleanup(func() { _ = c.Stop() })
	return c
}

func mustParse(t *testing.T, s string) path.Path {
	t.Helper()
	p, err := path.Parse(s)
	require.NoError(t, err)
	return p
}

func TestRegistrationPartitioning(t *testing.T) {
	c := startCore(t)

	s1 := startFakeStorageServer(t)
	toDelete, err := c.Register(s1.storageStub, s1.commandStub, []path.Path{mustParse(t, "/x"), mustParse(t, "/y")})
	require.NoError(t, err)
	assert.Empty(t, toDelete)

	children, err := c.List(path.Root())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y"}, children)

	s2 := startFakeStorageServer(t)
	toDelete, err = c.Register(s2.storageStub, s2.commandStub, []path.Path{mustParse(t, "/x"), mustParse(t, "/z")})
	require.NoError(t, err)
	require.Len(t, toDelete, 1)
	assert.True(t, toDelete[0].Equals(mustParse(t, "/x")))

	storageStub, err := c.GetStorage(mustParse(t, "/x"))
	require.NoError(t, err)
	assert.True(t, storageStub.Equals(s1.storageStub))

	storageStub, err = c.GetStorage(mustParse(t, "/z"))
	require.NoError(t, err)
	assert.True(t, storageStub.Equals(s2.storageStub))
}

func TestRegistrationIgnoresRoot(t *testing.T) {
	c := startCore(t)
	s := startFakeStorageServer(t)

	toDelete, err := c.Register(s.storageStub, s.commandStub, []path.Path{path.Root(), mustParse(t, "/a")})
	require.NoError(t, err)
	assert.Empty(t, toDelete)
}

func TestRegistrationAtMostOnce(t *testing.T) {
	c := startCore(t)
	s := startFakeStorageServer(t)

	_, err := c.Register(s.storageStub, s.commandStub, nil)
	require.NoError(t, err)

	_, err = c.Register(s.storageStub, s.commandStub, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindIllegalState))
}

func TestCreateFileHappyPath(t *testing.T) {
	c := startCore(t)
	s := startFakeStorageServer(t)
	_, err := c.Register(s.storageStub, s.commandStub, nil)
	require.NoError(t, err)

	_, err = c.CreateDirectory(mustParse(t, "/a"))
	require.NoError(t, err)

	created, err := c.CreateFile(mustParse(t, "/a/b"))
	require.NoError(t, err)
	assert.True(t, created)

	isDir, err := c.IsDirectory(mustParse(t, "/a"))
	require.NoError(t, err)
	assert.True(t, isDir)

	stub, err := c.GetStorage(mustParse(t, "/a/b"))
	require.NoError(t, err)
	assert.True(t, stub.Equals(s.storageStub))

	// The remote create actually happened.
	data, err := s.local.Read(mustParse(t, "/a/b"))
	require.NoError(t, err)
	assert.Equal(t, []byte{}, data)
}

func TestCreateFileReturnsFalseWhenAlreadyExists(t *testing.T) {
	c := startCore(t)
	s := startFakeStorageServer(t)
	_, err := c.Register(s.storageStub, s.commandStub, nil)
	require.NoError(t, err)

	_, err = c.CreateFile(mustParse(t, "/a"))
	require.NoError(t, err)

	created, err := c.CreateFile(mustParse(t, "/a"))
	require.NoError(t, err)
	assert.False(t, created)
}

func TestCreateFileMissingParentFails(t *testing.T) {
	c := startCore(t)
	s := startFakeStorageServer(t)
	_, err := c.Register(s.storageStub, s.commandStub, nil)
	require.NoError(t, err)

	_, err = c.CreateFile(mustParse(t, "/a/b/c"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindNotFound))

	_, err = c.IsDirectory(mustParse(t, "/a"))
	assert.True(t, errors.Is(err, errors.KindNotFound))
}

func TestCreateFileNoServerRegistered(t *testing.T) {
	c := startCore(t)
	_, err := c.CreateFile(mustParse(t, "/a"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindIllegalState))
}

func TestCreateDirectoryAndDelete(t *testing.T) {
	c := startCore(t)

	created, err := c.CreateDirectory(mustParse(t, "/a"))
	require.NoError(t, err)
	assert.True(t, created)

	err = c.Delete(mustParse(t, "/a"))
	require.NoError(t, err)

	_, err = c.IsDirectory(mustParse(t, "/a"))
	assert.True(t, errors.Is(err, errors.KindNotFound))
}

func TestDeleteNonEmptyDirectoryFails(t *testing.T) {
	c := startCore(t)
	_, err := c.CreateDirectory(mustParse(t, "/a"))
	require.NoError(t, err)
	_, err = c.CreateDirectory(mustParse(t, "/a/b"))
	require.NoError(t, err)

	err = c.Delete(mustParse(t, "/a"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindInvalidArgument))
}

func TestDeleteFileIssuesRemoteDelete(t *testing.T) {
	c := startCore(t)
	s := startFakeStorageServer(t)
	_, err := c.Register(s.storageStub, s.commandStub, nil)
	require.NoError(t, err)

	_, err = c.CreateFile(mustParse(t, "/a"))
	require.NoError(t, err)

	require.NoError(t, c.Delete(mustParse(t, "/a")))

	_, err = c.GetStorage(mustParse(t, "/a"))
	assert.True(t, errors.Is(err, errors.KindNotFound))

	_, err = s.local.Read(mustParse(t, "/a"))
	assert.True(t, errors.Is(err, errors.KindNotFound))
}

func TestDeleteMissingPathFails(t *testing.T) {
	c := startCore(t)
	err := c.Delete(mustParse(t, "/missing"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindNotFound))
}

func TestOpsObserverReportsEveryMutation(t *testing.T) {
	c := NewCore()
	type observation struct {
		op     string
		failed bool
	}
	observed := make(chan observation, 8)
	c.SetOpsObserver(func(op string, failed bool) {
		observed <- observation{op, failed}
	})
	require.NoError(t, c.Start("127.0.0.1:0", "127.0.0.1:0"))
	t.Cleanup(func() { _ = c.Stop() })

	_, err := c.CreateDirectory(mustParse(t, "/a"))
	require.NoError(t, err)
	assert.Equal(t, observation{"createDirectory", false}, <-observed)

	_, err = c.CreateFile(mustParse(t, "/a/b"))
	require.Error(t, err)
	assert.Equal(t, observation{"createFile", true}, <-observed)

	err = c.Delete(mustParse(t, "/a"))
	require.NoError(t, err)
	assert.Equal(t, observation{"delete", false}, <-observed)
}

func TestCallObserverForwardedToBothSkeletons(t *testing.T) {
	c := NewCore()
	calls := make(chan string, 4)
	c.SetCallObserver(func(iface, method string, duration time.Duration, failed bool) {
		calls <- iface + "." + method
	})
	require.NoError(t, c.Start("127.0.0.1:0", "127.0.0.1:0"))
	t.Cleanup(func() { _ = c.Stop() })

	regStub, err := rmi.NewStubFromAddress(registrationIface, c.RegistrationAddress())
	require.NoError(t, err)
	svcStub, err := rmi.NewStubFromAddress(serviceIface, c.ServiceAddress())
	require.NoError(t, err)

	s := startFakeStorageServer(t)
	registerDesc, err := rmi.Describe(registrationIface, "Register")
	require.NoError(t, err)
	_, err = regStub.Invoke(registerDesc, []interface{}{s.storageStub, s.commandStub, []path.Path(nil)})
	require.NoError(t, err)
	assert.Contains(t, <-calls, "Register")

	createDirDesc, err := rmi.Describe(serviceIface, "CreateDirectory")
	require.NoError(t, err)
	_, err = svcStub.Invoke(createDirDesc, []interface{}{mustParse(t, "/a")})
	require.NoError(t, err)
	assert.Contains(t, <-calls, "CreateDirectory")
}

func TestIdleWorkerTimeoutForwardedToBothSkeletons(t *testing.T) {
	c := NewCore()
	c.SetIdleWorkerTimeout(5 * time.Millisecond)
	require.NoError(t, c.Start("127.0.0.1:0", "127.0.0.1:0"))
	t.Cleanup(func() { _ = c.Stop() })

	// A short idle-worker timeout must not disrupt normal dispatch: each
	// skeleton's worker pool simply recycles its goroutines faster.
	_, err := c.CreateDirectory(mustParse(t, "/a"))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = c.CreateDirectory(mustParse(t, "/b"))
	require.NoError(t, err)
}

func TestStartAtMostOnce(t *testing.T) {
	c := startCore(t)
	err := c.Start("127.0.0.1:0", "127.0.0.1:0")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindIllegalState))
}

func TestAncestorClosureAfterCreateFile(t *testing.T) {
	c := startCore(t)
	s := startFakeStorageServer(t)
	_, err := c.Register(s.storageStub, s.commandStub, nil)
	require.NoError(t, err)

	_, err = c.CreateDirectory(mustParse(t, "/a"))
	require.NoError(t, err)
	_, err = c.CreateDirectory(mustParse(t, "/a/b"))
	require.NoError(t, err)

	_, err = c.CreateFile(mustParse(t, "/a/b/c"))
	require.NoError(t, err)

	for _, anc := range mustParse(t, "/a/b/c").Ancestors() {
		isDir, err := c.IsDirectory(anc)
		require.NoError(t, err)
		assert.True(t, isDir)
	}
}
