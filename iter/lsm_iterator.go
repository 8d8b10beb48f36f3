package iter

import "github.com/arvidw/lsmkv/bound"

// LsmIterator wraps a two-merge iterator with the two rules the
// engine's public Scan needs: truncate at an upper bound, and never
// surface a tombstone.
type LsmIterator struct {
	inner Iterator
	upper bound.Bound
	valid bool
	err   error
}

// NewLsmIterator positions an LsmIterator over inner, immediately
// applying the upper bound and skipping any leading tombstones.
func NewLsmIterator(inner Iterator, upper bound.Bound) (*LsmIterator, error) {
	l := &LsmIterator{inner: inner, upper: upper, valid: true}
	l.applyBound()
	if err := l.skipTombstones(); err != nil {
		return l, err
	}
	return l, nil
}

func (l *LsmIterator) applyBound() {
	if !l.valid {
		return
	}
	if !l.inner.IsValid() {
		l.valid = false
		return
	}
	if !l.upper.BelowUpper(l.inner.Key()) {
		l.valid = false
	}
}

func (l *LsmIterator) skipTombstones() error {
	for l.valid && len(l.inner.Value()) == 0 {
		if err := l.inner.Next(); err != nil {
			l.err = err
			l.valid = false
			return err
		}
		l.applyBound()
	}
	return nil
}

func (l *LsmIterator) IsValid() bool { return l.err == nil && l.valid }
func (l *LsmIterator) Key() []byte   { return l.inner.Key() }
func (l *LsmIterator) Value() []byte { return l.inner.Value() }
func (l *LsmIterator) Error() error  { return l.err }

func (l *LsmIterator) Next() error {
	if l.err != nil {
		return l.err
	}
	if !l.valid {
		return nil
	}
	if err := l.inner.Next(); err != nil {
		l.err = err
		l.valid = false
		return err
	}
	l.applyBound()
	return l.skipTombstones()
}
