package mir

// ClearCrossCrate holds data only meaningful inside the defining crate.
// Cross-crate metadata drops the payload, so decoders on the other side
// always see the Clear variant.
type ClearCrossCrate[T any] struct {
	value T
	set   bool
}

// ClearCross returns the empty variant.
func ClearCross[T any]() ClearCrossCrate[T] { return ClearCrossCrate[T]{} }

// SetCrossCrate wraps v.
func SetCrossCrate[T any](v T) ClearCrossCrate[T] {
	return ClearCrossCrate[T]{value: v, set: true}
}

// IsSet reports whether a payload is present.
func (c ClearCrossCrate[T]) IsSet() bool { return c.set }

// IsClear reports whether the payload was dropped.
func (c ClearCrossCrate[T]) IsClear() bool { return !c.set }

// Get returns the payload and whether it is present.
func (c ClearCrossCrate[T]) Get() (T, bool) { return c.value, c.set }

// AssertCrateLocal returns the payload. It panics when called on data that
// came from another crate.
func (c ClearCrossCrate[T]) AssertCrateLocal() T {
	if !c.set {
		bug("unwrapping cross-crate data")
	}
	return c.value
}
