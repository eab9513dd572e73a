package reactive

// Signal is a mutable reactive value.
// Reading a Signal with Get while an effect, computed or observer is
// tracking subscribes it to the signal; Set notifies subscribers when the
// value actually changes.
type Signal[T any] struct {
	n     *node
	value T

	// equal decides whether a write changes the value.
	// If nil, defaultEquals is used.
	equal func(T, T) bool
}

// NewSignal creates a new signal with the given initial value.
func NewSignal[T any](rt *Runtime, initial T) *Signal[T] {
	rt.enter()
	return &Signal[T]{
		n:     rt.newNode(KindSignal, ""),
		value: initial,
	}
}

// Get returns the current value and subscribes the current observer.
func (s *Signal[T]) Get() T {
	s.n.rt.enter()
	s.n.rt.track(s.n)
	return s.value
}

// Peek returns the current value without subscribing.
func (s *Signal[T]) Peek() T {
	return s.value
}

// Set updates the value and notifies subscribers if it changed.
//
// Outside of a batch or a running effect, dependent effects re-run before Set
// returns and their failures are returned joined together. Inside one, the
// re-runs are deferred to the end of the enclosing pass and Set returns nil.
// Set refuses to write while a computed derivation runs and returns
// ErrWriteInDerivation.
func (s *Signal[T]) Set(value T) error {
	rt := s.n.rt
	rt.enter()
	if err := rt.checkWrite(); err != nil {
		return err
	}
	if s.equals(s.value, value) {
		return nil
	}
	s.value = value
	return rt.written(s.n)
}

// Update sets the value to fn applied to the current value.
func (s *Signal[T]) Update(fn func(T) T) error {
	rt := s.n.rt
	rt.enter()
	if err := rt.checkWrite(); err != nil {
		return err
	}
	next := fn(s.value)
	if s.equals(s.value, next) {
		return nil
	}
	s.value = next
	return rt.written(s.n)
}

// WithEquals configures the signal with a custom equality function.
// This is useful when reflect.DeepEqual is too expensive or has the wrong
// semantics for T.
func (s *Signal[T]) WithEquals(fn func(T, T) bool) *Signal[T] {
	s.equal = fn
	return s
}

// Named sets a debug name used in errors, logs and snapshots.
func (s *Signal[T]) Named(name string) *Signal[T] {
	s.n.name = name
	return s
}

// ID returns the unique identifier for this signal.
func (s *Signal[T]) ID() uint64 {
	return s.n.id
}

// Subscribers returns the IDs of the observers currently depending on s.
func (s *Signal[T]) Subscribers() []uint64 {
	return s.n.subIDs()
}

func (s *Signal[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return defaultEquals(a, b)
}

// checkWrite rejects writes made from inside a computed derivation and
// records the violation so the derivation fails.
func (rt *Runtime) checkWrite() error {
	f := rt.innermostDerivation()
	if f == nil {
		return nil
	}
	if f.violation == nil {
		f.violation = ErrWriteInDerivation
	}
	return ErrWriteInDerivation
}
