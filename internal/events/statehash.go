package events

import (
	"hash/fnv"
	"math"
	"reflect"
)

// contentHash computes a structural hash of v's fields (spec.md §4.8
// "booleans folded, floats via bit pattern, strings via bytes, options
// tagged 0/1"), used to suppress redundant State emissions when nothing
// actually changed. No pack library offers reflection-driven structural
// hashing (mitchellh/hashstructure never appears in the retrieval pack),
// so this walks reflect.Value directly over hash/fnv — see DESIGN.md.
func contentHash(v any) uint64 {
	h := fnv.New64a()
	hashValue(h, reflect.ValueOf(v))
	return h.Sum64()
}

func hashValue(h interface{ Write([]byte) (int, error) }, v reflect.Value) {
	if !v.IsValid() {
		h.Write([]byte{0})
		return
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			h.Write([]byte{0})
			return
		}
		h.Write([]byte{1})
		hashValue(h, v.Elem())
	case reflect.Bool:
		if v.Bool() {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	case reflect.String:
		h.Write([]byte(v.String()))
	case reflect.Float32, reflect.Float64:
		writeUint64(h, math.Float64bits(v.Float()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		writeUint64(h, uint64(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		writeUint64(h, v.Uint())
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			hashValue(h, v.Index(i))
		}
	case reflect.Map:
		// MapKeys order is random, so each entry is hashed on its own and
		// the entry hashes are summed, which does not depend on order.
		var sum uint64
		for _, key := range v.MapKeys() {
			eh := fnv.New64a()
			hashValue(eh, key)
			hashValue(eh, v.MapIndex(key))
			sum += eh.Sum64()
		}
		writeUint64(h, sum)
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if !v.Type().Field(i).IsExported() {
				continue
			}
			hashValue(h, v.Field(i))
		}
	default:
		// unsupported kinds (chan, func, unsafe.Pointer) contribute nothing
	}
}

func writeUint64(h interface{ Write([]byte) (int, error) }, u uint64) {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
	h.Write(b[:])
}
