// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idb

// Key identifies a record inside an object store or index.
// Valid keys are numbers (any Go integer or float type), strings,
// binary ([]byte), and arrays of valid keys ([]Key). Cross-type
// ordering follows IndexedDB: number < string < binary < array.
type Key = any

// Key type ranks, in IndexedDB comparison order.
const (
	rankNumber = iota
	rankString
	rankBinary
	rankArray
	rankInvalid
)

func keyRank(k Key) int {
	switch k.(type) {
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return rankNumber
	case string:
		return rankString
	case []byte:
		return rankBinary
	case []Key:
		return rankArray
	default:
		return rankInvalid
	}
}

func validKey(k Key) bool {
	switch v := k.(type) {
	case []Key:
		for _, e := range v {
			if !validKey(e) {
				return false
			}
		}
		return true
	default:
		return keyRank(k) != rankInvalid
	}
}

// normalizeKey folds every numeric key into float64 and copies array
// keys so later store mutations cannot alias caller state. Callers
// must have checked validKey first.
func normalizeKey(k Key) Key {
	switch v := k.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case []byte:
		out := make([]byte, len(v))
		copy(out, v)
		return out
	case []Key:
		out := make([]Key, len(v))
		for i, e := range v {
			out[i] = normalizeKey(e)
		}
		return out
	default:
		return k
	}
}

// compareKeys orders two normalized keys: -1, 0 or +1.
func compareKeys(a, b Key) int {
	ra, rb := keyRank(a), keyRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case rankNumber:
		na, nb := a.(float64), b.(float64)
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	case rankString:
		sa, sb := a.(string), b.(string)
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		}
		return 0
	case rankBinary:
		ba, bb := a.([]byte), b.([]byte)
		n := min(len(ba), len(bb))
		for i := 0; i < n; i++ {
			if ba[i] != bb[i] {
				if ba[i] < bb[i] {
					return -1
				}
				return 1
			}
		}
		switch {
		case len(ba) < len(bb):
			return -1
		case len(ba) > len(bb):
			return 1
		}
		return 0
	default: // rankArray
		aa, ab := a.([]Key), b.([]Key)
		n := min(len(aa), len(ab))
		for i := 0; i < n; i++ {
			if c := compareKeys(aa[i], ab[i]); c != 0 {
				return c
			}
		}
		switch {
		case len(aa) < len(ab):
			return -1
		case len(aa) > len(ab):
			return 1
		}
		return 0
	}
}
