package events

import (
	"fmt"
	"sync"
)

// MainRoomID is the namespace-wide room every connected socket joins for
// topology/boot-level events.
const MainRoomID = "/main"

// MachineRoomID formats the per-machine RoomID spec.md §4.7 specifies:
// "/machine/{vendor}/{machine}/{serial}".
func MachineRoomID(vendorID, machineType, serialNumber uint16) string {
	return fmt.Sprintf("/machine/%d/%d/%d", vendorID, machineType, serialNumber)
}

// Registry is the process-wide set of rooms, created lazily on first
// reference.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
	qLen  int
}

// NewRegistry constructs an empty registry. qLen bounds each room's
// per-subscriber channel depth.
func NewRegistry(qLen int) *Registry {
	return &Registry{rooms: make(map[string]*Room), qLen: qLen}
}

// Room returns the room for id, creating it on first reference.
func (reg *Registry) Room(id string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r := reg.rooms[id]
	if r == nil {
		r = newRoom(id, reg.qLen)
		reg.rooms[id] = r
	}
	return r
}

// Rooms returns a snapshot of all currently-known room ids.
func (reg *Registry) Rooms() []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	ids := make([]string, 0, len(reg.rooms))
	for id := range reg.rooms {
		ids = append(ids, id)
	}
	return ids
}
