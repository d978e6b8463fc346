package indicator

// Value is an optional float64. Rolling computations are undefined until
// their window fills; representing "undefined" as a distinct state (rather
// than NaN or zero) means downstream rule logic can never compare against a
// poisoned number by accident.
type Value struct {
	v  float64
	ok bool
}

// Defined wraps a concrete float in a defined Value.
func Defined(v float64) Value {
	return Value{v: v, ok: true}
}

// Get returns the underlying float and whether it is defined.
func (v Value) Get() (float64, bool) {
	return v.v, v.ok
}

// Defined reports whether the value carries a number.
func (v Value) Defined() bool {
	return v.ok
}

// Flag is an optional bool, used for the squeeze flag which is undefined
// while any of the four bands it derives from is undefined.
type Flag struct {
	b  bool
	ok bool
}

// FlagOf wraps a concrete bool in a defined Flag.
func FlagOf(b bool) Flag {
	return Flag{b: b, ok: true}
}

// Get returns the underlying bool and whether it is defined.
func (f Flag) Get() (bool, bool) {
	return f.b, f.ok
}

// Defined reports whether the flag carries a value.
func (f Flag) Defined() bool {
	return f.ok
}
