package iter

import "errors"

// ErrIteratorExhausted is returned by FusedIterator.Next when called
// after the iterator has already reported invalid or errored; calling
// Next/Key/Value past that point is a programmer error, and this
// makes it detectable instead of silently reading stale state.
var ErrIteratorExhausted = errors.New("iter: use of iterator past end or error")

// FusedIterator guards against use-after-error and use-after-end: once
// the wrapped iterator becomes invalid, no further calls reach it.
type FusedIterator struct {
	inner Iterator
	done  bool
}

// NewFusedIterator wraps inner.
func NewFusedIterator(inner Iterator) *FusedIterator {
	f := &FusedIterator{inner: inner}
	if !inner.IsValid() {
		f.done = true
	}
	return f
}

func (f *FusedIterator) IsValid() bool {
	return !f.done && f.inner.IsValid()
}

func (f *FusedIterator) Key() []byte {
	if !f.IsValid() {
		return nil
	}
	return f.inner.Key()
}

func (f *FusedIterator) Value() []byte {
	if !f.IsValid() {
		return nil
	}
	return f.inner.Value()
}

func (f *FusedIterator) Next() error {
	if f.done {
		return ErrIteratorExhausted
	}
	if !f.inner.IsValid() {
		f.done = true
		return ErrIteratorExhausted
	}
	if err := f.inner.Next(); err != nil {
		f.done = true
		return err
	}
	if !f.inner.IsValid() {
		f.done = true
	}
	return nil
}
