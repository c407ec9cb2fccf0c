package permission

// Mask is a 64-bit flag set. Bit i corresponds to the flag registered at
// position i in the [Registry].
type Mask uint64

func (m Mask) Has(bit int) bool {
	if bit < 0 || bit >= maxFlags {
		return false
	}
	return m&(1<<bit) != 0
}

func (m *Mask) Set(bit int) {
	if bit < 0 || bit >= maxFlags {
		return
	}
	*m |= 1 << bit
}

func (m *Mask) Clear(bit int) {
	if bit < 0 || bit >= maxFlags {
		return
	}
	*m &^= 1 << bit
}

func (m Mask) Raw() uint64 {
	return uint64(m)
}

// Subset reports whether every bit set in m is also set in other.
func (m Mask) Subset(other Mask) bool {
	return m&^other == 0
}
