package model

import "strconv"

// RefKind distinguishes the two ways an entity can be addressed.
type RefKind int

const (
	// BySurrogate addresses an entity by its numeric storage key.
	BySurrogate RefKind = iota
	// ByPublicID addresses an entity by its sequenced identifier.
	ByPublicID
)

// Ref is a tagged reference to an entity: either the numeric surrogate key
// or the public sequenced identifier. The boundary layer decides which form
// an incoming path segment is; storage code never inspects strings.
type Ref struct {
	Kind      RefKind
	Surrogate uint
	PublicID  string
}

// SurrogateRef returns a Ref addressing an entity by storage key.
func SurrogateRef(id uint) Ref {
	return Ref{Kind: BySurrogate, Surrogate: id}
}

// PublicRef returns a Ref addressing an entity by sequenced identifier.
func PublicRef(id string) Ref {
	return Ref{Kind: ByPublicID, PublicID: id}
}

// ParseRef interprets a raw path segment: an all-digit segment is a
// surrogate key, anything else is a public identifier. This is the single
// place where that disambiguation happens.
func ParseRef(raw string) Ref {
	if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return SurrogateRef(uint(n))
	}
	return PublicRef(raw)
}
