package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/roundtable/internal/core"
	"github.com/dkeye/roundtable/internal/domain"
)

// Rooms is the arena of active rooms, indexed by id. A room is created on
// first join and freed explicitly when its roster empties; nothing relies
// on a dangling *Room being collected.
type Rooms struct {
	set    core.Settings
	topics core.TopicSource
	sink   core.Sink

	mu    sync.RWMutex
	rooms map[domain.RoomID]*core.Room
}

func NewRooms(set core.Settings, topics core.TopicSource, sink core.Sink) *Rooms {
	return &Rooms{
		set:    set,
		topics: topics,
		sink:   sink,
		rooms:  make(map[domain.RoomID]*core.Room),
	}
}

func (f *Rooms) GetOrCreate(id domain.RoomID) *core.Room {
	f.mu.RLock()
	room, ok := f.rooms[id]
	f.mu.RUnlock()
	if ok {
		return room
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok = f.rooms[id]; ok {
		return room
	}
	room = core.NewRoom(id, f.set, f.topics, f.sink)
	f.rooms[id] = room
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room created")
	return room
}

func (f *Rooms) Get(id domain.RoomID) (*core.Room, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[id]
	return room, ok
}

func (f *Rooms) List() []core.Info {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.Info, 0, len(f.rooms))
	for _, r := range f.rooms {
		out = append(out, r.Info())
	}
	return out
}

// RemoveIfEmpty tears a room down if its roster is still empty. The
// emptiness a caller's Leave observed may be stale by the time the arena
// lock is held here; a join that landed in between keeps the room alive.
// On removal any pending countdown is cancelled synchronously so no
// orphaned tick fires after the room is gone.
func (f *Rooms) RemoveIfEmpty(id domain.RoomID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		return false
	}
	if len(room.Snapshot()) > 0 {
		return false
	}
	room.Close()
	delete(f.rooms, id)
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room destroyed")
	return true
}

func (f *Rooms) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.rooms)
}
