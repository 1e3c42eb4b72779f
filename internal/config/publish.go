package config

import (
	"encoding/json"
	"time"

	"github.com/andreyvit/tinyjson"

	"github.com/lineflow/linectl/internal/events"
)

// Publish re-encodes cfg to JSON and decodes it back through tinyjson
// into a plain map, the same "decode a JSON blob of unknown shape and
// hand it to the bus" step the teacher's publishConfig performed on its
// embedded per-device configs — generalized here from a static embedded
// blob to the config that was just loaded from disk, and from a
// per-topic retained bus message to a single retained "config" event in
// the /main room, so a UI reconnecting mid-run immediately receives the
// active configuration.
func Publish(room *events.Room, cfg *Config, now time.Time) error {
	encoded, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	r := tinyjson.Raw(encoded)
	val := r.Value()
	r.EnsureEOF()

	room.Configure("config", events.CacheFirstAndLast)
	room.Emit("config", val, now)
	return nil
}
