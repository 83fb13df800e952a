// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idb

// KeyRange bounds a contiguous span of keys. The zero value is not a
// valid range; use the constructors. A nil *KeyRange in an operation
// means "all keys".
type KeyRange struct {
	lower, upper         Key
	hasLower, hasUpper   bool
	lowerOpen, upperOpen bool
}

// Only matches exactly one key.
func Only(k Key) KeyRange {
	return KeyRange{lower: k, upper: k, hasLower: true, hasUpper: true}
}

// LowerBound matches every key from k upward. With open set, k itself
// is excluded.
func LowerBound(k Key, open bool) KeyRange {
	return KeyRange{lower: k, hasLower: true, lowerOpen: open}
}

// UpperBound matches every key from k downward. With open set, k
// itself is excluded.
func UpperBound(k Key, open bool) KeyRange {
	return KeyRange{upper: k, hasUpper: true, upperOpen: open}
}

// Bound matches every key between lower and upper, with per-end
// exclusion flags.
func Bound(lower, upper Key, lowerOpen, upperOpen bool) KeyRange {
	return KeyRange{
		lower: lower, upper: upper,
		hasLower: true, hasUpper: true,
		lowerOpen: lowerOpen, upperOpen: upperOpen,
	}
}

// validate checks bound keys and bound ordering.
func (r *KeyRange) validate() error {
	if r == nil {
		return nil
	}
	if !r.hasLower && !r.hasUpper {
		return ErrInvalidRange
	}
	if r.hasLower && !validKey(r.lower) {
		return ErrInvalidKey
	}
	if r.hasUpper && !validKey(r.upper) {
		return ErrInvalidKey
	}
	if r.hasLower && r.hasUpper {
		c := compareKeys(normalizeKey(r.lower), normalizeKey(r.upper))
		if c > 0 {
			return ErrInvalidRange
		}
		if c == 0 && (r.lowerOpen || r.upperOpen) {
			return ErrInvalidRange
		}
	}
	return nil
}

// normalize returns a copy with normalized bound keys.
func (r *KeyRange) normalize() *KeyRange {
	if r == nil {
		return nil
	}
	out := *r
	if out.hasLower {
		out.lower = normalizeKey(out.lower)
	}
	if out.hasUpper {
		out.upper = normalizeKey(out.upper)
	}
	return &out
}

// contains reports whether a normalized key falls inside the range.
// A nil receiver contains every key.
func (r *KeyRange) contains(k Key) bool {
	if r == nil {
		return true
	}
	if r.hasLower {
		c := compareKeys(k, r.lower)
		if c < 0 || (c == 0 && r.lowerOpen) {
			return false
		}
	}
	if r.hasUpper {
		c := compareKeys(k, r.upper)
		if c > 0 || (c == 0 && r.upperOpen) {
			return false
		}
	}
	return true
}
