package value

// String is an immutable byte sequence with a precomputed FNV-1a hash
// (spec.md §3). Strings created at run time always go through the VM's
// intern table, which guarantees at most one String object per distinct
// content; compile-time string constants do not, since Compile has no VM to
// intern into. The machine package's equality check accounts for this by
// comparing String content rather than pointer identity (see
// machine.valuesEqual).
type String struct {
	ObjHeader
	s    string
	hash uint32
}

func (s *String) String() string { return s.s }
func (s *String) Type() string   { return "string" }

// Go returns the Go string content.
func (s *String) Go() string { return s.s }

// Len returns the number of bytes in the string.
func (s *String) Len() int { return len(s.s) }

// Hash returns the precomputed FNV-1a hash of the string's content.
func (s *String) Hash() uint32 { return s.hash }

// NewString allocates an uninterned String wrapping s. Callers outside of
// the intern table (machine.VM.internString) should not normally call this
// directly; use the VM's interning entry point so that the "at most one
// object per distinct content" invariant holds.
func NewString(s string) *String {
	return &String{s: s, hash: fnv1a(s)}
}

// fnv1a computes the 32-bit FNV-1a hash of s (spec.md §2: "FNV-1a hashing").
func fnv1a(s string) uint32 {
	const (
		offsetBasis = 2166136261
		prime       = 16777619
	)
	h := uint32(offsetBasis)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}
