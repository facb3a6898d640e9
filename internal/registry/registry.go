// Package registry owns the in-memory room state: the mapping from room id
// to its ordered member list, and the reverse index that locates a
// connection's room and index in O(1) on disconnect.
package registry

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// IDGenerator produces a fresh, presumed-unique room id. In production this
// is uuid.NewString; tests inject a deterministic or colliding generator.
type IDGenerator func() string

type location struct {
	roomID string
	index  int
}

// broadcastHeader is the binary routing header's reserved value meaning
// "every other member of the room".
const broadcastHeader = 255

// Registry is the process-wide singleton owning every room. All operations
// are atomic with respect to each other: each is one critical section under
// a single RWMutex. Reads (Lookup, ResolveRoute) take the read lock; every
// mutation takes the write lock. No operation blocks on I/O while holding
// the lock — callers receive a snapshot and send frames afterward.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	byConn map[Handle]location
	newID  IDGenerator
	log    *slog.Logger
}

// New constructs an empty Registry. log may be nil, in which case
// diagnostics are discarded.
func New(newID IDGenerator, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{
		rooms:  make(map[string]*room),
		byConn: make(map[Handle]location),
		newID:  newID,
		log:    log,
	}
}

// CreateRoom allocates a new room of the given capacity owned by conn, which
// becomes its sole member at index 0. Fails with ErrAlreadyInRoom if conn is
// already a member somewhere, ErrInvalidSize if capacity is out of
// [MinCapacity, MaxCapacity], or ErrAlreadyExists on an id collision (not
// retried).
func (r *Registry) CreateRoom(conn Handle, capacity int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byConn[conn]; ok {
		return "", ErrAlreadyInRoom
	}
	if capacity < MinCapacity || capacity > MaxCapacity {
		return "", ErrInvalidSize
	}

	id := r.newID()
	if _, exists := r.rooms[id]; exists {
		return "", ErrAlreadyExists
	}

	rm := newRoom(id, capacity)
	idx, err := rm.tryAdd(conn)
	if err != nil {
		panic(fmt.Sprintf("registry: fresh room of capacity %d rejected its first member", capacity))
	}

	r.rooms[id] = rm
	r.byConn[conn] = location{roomID: id, index: idx}
	r.log.Debug("room created", "room", id, "capacity", capacity)
	return id, nil
}

// JoinRoom appends conn to the room named id. On success it returns conn's
// new index, the room's member count just before the append (for the join
// ack), and the snapshot of prior members to notify.
func (r *Registry) JoinRoom(conn Handle, id string) (index, priorSize int, notify []Handle, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byConn[conn]; ok {
		return 0, 0, nil, ErrAlreadyInRoom
	}

	rm, ok := r.rooms[id]
	if !ok {
		return 0, 0, nil, ErrDoesNotExist
	}

	priorSize = rm.Len()
	idx, err := rm.tryAdd(conn)
	if err != nil {
		return 0, 0, nil, err
	}

	r.byConn[conn] = location{roomID: id, index: idx}
	notify = rm.membersExcept(idx)
	r.log.Debug("member joined", "room", id, "index", idx, "members", rm.Len())
	return idx, priorSize, notify, nil
}

// HandleDisconnect removes conn from its room, if any, rewriting the indices
// of every member that shifted down. If the room becomes empty it is
// destroyed and remaining is nil; ok is false if conn was not in any room.
// Running this twice on the same conn is a no-op the second time.
func (r *Registry) HandleDisconnect(conn Handle) (roomID string, index int, remaining []Handle, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	loc, found := r.byConn[conn]
	if !found {
		return "", 0, nil, false
	}

	rm, exists := r.rooms[loc.roomID]
	if !exists {
		panic(fmt.Sprintf("registry: reverse index points at missing room %q", loc.roomID))
	}

	evicted := rm.removeAt(loc.index)
	if evicted != conn {
		panic("registry: reverse index inconsistent with room member list")
	}
	delete(r.byConn, conn)

	for i := loc.index; i < rm.Len(); i++ {
		m, _ := rm.At(i)
		r.byConn[m] = location{roomID: loc.roomID, index: i}
	}

	if rm.IsEmpty() {
		delete(r.rooms, loc.roomID)
		r.log.Debug("room destroyed", "room", loc.roomID)
		return loc.roomID, loc.index, nil, true
	}

	r.log.Debug("member left", "room", loc.roomID, "index", loc.index, "members", rm.Len())
	return loc.roomID, loc.index, rm.all(), true
}

// Lookup reports conn's current room id and index, if it is in a room.
func (r *Registry) Lookup(conn Handle) (id string, index int, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	loc, found := r.byConn[conn]
	if !found {
		return "", 0, false
	}
	return loc.roomID, loc.index, true
}

// ResolveRoute makes the single atomic binary-routing decision: given the
// sender and the frame's routing byte, it returns the sender's current index
// and the snapshot of recipients. headerByte 255 means broadcast (every
// other member); 0..254 means unicast to that index, if it exists. ok is
// false if conn is not in a room, or the unicast index is out of range.
func (r *Registry) ResolveRoute(conn Handle, headerByte byte) (senderIndex int, recipients []Handle, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	loc, found := r.byConn[conn]
	if !found {
		return 0, nil, false
	}
	rm := r.rooms[loc.roomID]

	if headerByte == broadcastHeader {
		return loc.index, rm.membersExcept(loc.index), true
	}

	target, ok := rm.At(int(headerByte))
	if !ok {
		return 0, nil, false
	}
	return loc.index, []Handle{target}, true
}

// Stats reports the current room and member counts, for operational
// monitoring only; it is not part of the routing contract.
func (r *Registry) Stats() (rooms, members int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms = len(r.rooms)
	for _, rm := range r.rooms {
		members += rm.Len()
	}
	return rooms, members
}
