package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHandle records every frame sent to it instead of touching a socket.
type fakeHandle struct {
	name   string
	mu     sync.Mutex
	texts  [][]byte
	binary [][]byte
	closed bool
}

func newFakeHandle(name string) *fakeHandle { return &fakeHandle{name: name} }

func (f *fakeHandle) SendText(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, data)
	return nil
}

func (f *fakeHandle) SendBinary(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binary = append(f.binary, data)
	return nil
}

func (f *fakeHandle) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func sequentialIDs(prefix string) IDGenerator {
	n := 0
	return func() string {
		n++
		return prefix + string(rune('0'+n))
	}
}

func TestCreateRoom(t *testing.T) {
	reg := New(sequentialIDs("room-"), nil)
	a := newFakeHandle("a")

	id, err := reg.CreateRoom(a, 2)
	require.NoError(t, err)
	assert.Equal(t, "room-1", id)

	roomID, index, ok := reg.Lookup(a)
	require.True(t, ok)
	assert.Equal(t, id, roomID)
	assert.Equal(t, 0, index)
}

func TestCreateRoomInvalidSize(t *testing.T) {
	reg := New(sequentialIDs("room-"), nil)
	a := newFakeHandle("a")

	for _, size := range []int{0, -1, 255, 1000} {
		_, err := reg.CreateRoom(a, size)
		assert.ErrorIs(t, err, ErrInvalidSize)
	}
}

func TestCreateRoomAlreadyInRoom(t *testing.T) {
	reg := New(sequentialIDs("room-"), nil)
	a := newFakeHandle("a")

	_, err := reg.CreateRoom(a, 2)
	require.NoError(t, err)

	_, err = reg.CreateRoom(a, 2)
	assert.ErrorIs(t, err, ErrAlreadyInRoom)
}

func TestCreateRoomIDCollision(t *testing.T) {
	reg := New(func() string { return "dup" }, nil)
	a := newFakeHandle("a")
	b := newFakeHandle("b")

	_, err := reg.CreateRoom(a, 2)
	require.NoError(t, err)

	reg2 := New(func() string { return "dup" }, nil)
	_, err = reg2.CreateRoom(a, 2)
	require.NoError(t, err)
	_, err = reg2.CreateRoom(b, 2)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestJoinRoomRoundTrip(t *testing.T) {
	reg := New(sequentialIDs("room-"), nil)
	a := newFakeHandle("a")
	b := newFakeHandle("b")

	id, err := reg.CreateRoom(a, 2)
	require.NoError(t, err)

	index, priorSize, notify, err := reg.JoinRoom(b, id)
	require.NoError(t, err)
	assert.Equal(t, 1, index)
	assert.Equal(t, 1, priorSize)
	require.Len(t, notify, 1)
	assert.Same(t, a, notify[0].(*fakeHandle))

	roomID, idx, ok := reg.Lookup(b)
	require.True(t, ok)
	assert.Equal(t, id, roomID)
	assert.Equal(t, 1, idx)
}

func TestJoinRoomDoesNotExist(t *testing.T) {
	reg := New(sequentialIDs("room-"), nil)
	a := newFakeHandle("a")

	_, _, _, err := reg.JoinRoom(a, "nope")
	assert.ErrorIs(t, err, ErrDoesNotExist)
}

func TestJoinRoomIsFull(t *testing.T) {
	reg := New(sequentialIDs("room-"), nil)
	a := newFakeHandle("a")
	b := newFakeHandle("b")
	c := newFakeHandle("c")

	id, err := reg.CreateRoom(a, 1)
	require.NoError(t, err)

	_, _, _, err = reg.JoinRoom(b, id)
	assert.ErrorIs(t, err, ErrIsFull)

	// capacity law: a rejected join does not mutate the room.
	_, _, _, err = reg.JoinRoom(c, id)
	assert.ErrorIs(t, err, ErrIsFull)
	roomID, index, ok := reg.Lookup(a)
	require.True(t, ok)
	assert.Equal(t, id, roomID)
	assert.Equal(t, 0, index)
}

func TestJoinRoomAlreadyInRoom(t *testing.T) {
	reg := New(sequentialIDs("room-"), nil)
	a := newFakeHandle("a")
	b := newFakeHandle("b")

	id1, err := reg.CreateRoom(a, 2)
	require.NoError(t, err)
	id2, err := reg.CreateRoom(b, 2)
	require.NoError(t, err)

	_, _, _, err = reg.JoinRoom(a, id2)
	assert.ErrorIs(t, err, ErrAlreadyInRoom)

	roomID, _, _ := reg.Lookup(a)
	assert.Equal(t, id1, roomID)
}

func TestHandleDisconnectDestroysEmptyRoom(t *testing.T) {
	reg := New(sequentialIDs("room-"), nil)
	a := newFakeHandle("a")

	id, err := reg.CreateRoom(a, 2)
	require.NoError(t, err)

	roomID, index, remaining, ok := reg.HandleDisconnect(a)
	require.True(t, ok)
	assert.Equal(t, id, roomID)
	assert.Equal(t, 0, index)
	assert.Empty(t, remaining)

	_, _, ok = reg.Lookup(a)
	assert.False(t, ok)
}

func TestHandleDisconnectReindexesTail(t *testing.T) {
	reg := New(sequentialIDs("room-"), nil)
	a := newFakeHandle("a")
	b := newFakeHandle("b")
	c := newFakeHandle("c")

	id, err := reg.CreateRoom(a, 3)
	require.NoError(t, err)
	_, _, _, err = reg.JoinRoom(b, id)
	require.NoError(t, err)
	_, _, _, err = reg.JoinRoom(c, id)
	require.NoError(t, err)

	// a is at index 0; removing it must shift b to 0 and c to 1.
	roomID, index, remaining, ok := reg.HandleDisconnect(a)
	require.True(t, ok)
	assert.Equal(t, id, roomID)
	assert.Equal(t, 0, index)
	assert.Len(t, remaining, 2)

	_, bIndex, ok := reg.Lookup(b)
	require.True(t, ok)
	assert.Equal(t, 0, bIndex)

	_, cIndex, ok := reg.Lookup(c)
	require.True(t, ok)
	assert.Equal(t, 1, cIndex)
}

func TestHandleDisconnectIdempotent(t *testing.T) {
	reg := New(sequentialIDs("room-"), nil)
	a := newFakeHandle("a")

	_, err := reg.CreateRoom(a, 2)
	require.NoError(t, err)

	_, _, _, ok := reg.HandleDisconnect(a)
	require.True(t, ok)

	_, _, _, ok = reg.HandleDisconnect(a)
	assert.False(t, ok)

	rooms, members := reg.Stats()
	assert.Equal(t, 0, rooms)
	assert.Equal(t, 0, members)
}

func TestResolveRouteBroadcast(t *testing.T) {
	reg := New(sequentialIDs("room-"), nil)
	a := newFakeHandle("a")
	b := newFakeHandle("b")
	c := newFakeHandle("c")

	id, err := reg.CreateRoom(a, 3)
	require.NoError(t, err)
	_, _, _, err = reg.JoinRoom(b, id)
	require.NoError(t, err)
	_, _, _, err = reg.JoinRoom(c, id)
	require.NoError(t, err)

	senderIndex, recipients, ok := reg.ResolveRoute(a, 255)
	require.True(t, ok)
	assert.Equal(t, 0, senderIndex)
	assert.Len(t, recipients, 2)
}

func TestResolveRouteUnicastSelf(t *testing.T) {
	reg := New(sequentialIDs("room-"), nil)
	a := newFakeHandle("a")

	_, err := reg.CreateRoom(a, 2)
	require.NoError(t, err)

	senderIndex, recipients, ok := reg.ResolveRoute(a, 0)
	require.True(t, ok)
	assert.Equal(t, 0, senderIndex)
	require.Len(t, recipients, 1)
	assert.Same(t, a, recipients[0].(*fakeHandle))
}

func TestResolveRouteOutOfRange(t *testing.T) {
	reg := New(sequentialIDs("room-"), nil)
	a := newFakeHandle("a")

	_, err := reg.CreateRoom(a, 2)
	require.NoError(t, err)

	_, _, ok := reg.ResolveRoute(a, 5)
	assert.False(t, ok)
}

func TestResolveRouteNotInRoom(t *testing.T) {
	reg := New(sequentialIDs("room-"), nil)
	a := newFakeHandle("a")

	_, _, ok := reg.ResolveRoute(a, 255)
	assert.False(t, ok)
}
