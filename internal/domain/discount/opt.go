package discount

// Opt is an optional Discount.
type Opt struct {
	value Discount
	set   bool
}

// Some returns an Opt holding d. A nil d yields an empty Opt.
func Some(d Discount) Opt {
	if d == nil {
		return Opt{}
	}
	return Opt{value: d, set: true}
}

// None returns an empty Opt.
func None() Opt { return Opt{} }

// Get returns the discount and whether it is set.
func (o Opt) Get() (Discount, bool) {
	return o.value, o.set
}

// IsSet reports whether a discount is present.
func (o Opt) IsSet() bool { return o.set }
