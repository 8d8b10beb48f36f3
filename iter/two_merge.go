package iter

import "bytes"

// TwoMergeIterator merges exactly two sources with a fixed preference:
// on equal keys A wins and B is advanced past that key. Used to
// compose the memtable-side merge (A, strictly newer) with the
// SST-side merge (B).
type TwoMergeIterator struct {
	a, b Iterator
	err  error
}

// NewTwoMergeIterator builds a two-way merge preferring a over b.
func NewTwoMergeIterator(a, b Iterator) (*TwoMergeIterator, error) {
	t := &TwoMergeIterator{a: a, b: b}
	if err := t.skipB(); err != nil {
		t.err = err
		return t, err
	}
	return t, nil
}

func (t *TwoMergeIterator) skipB() error {
	if t.a.IsValid() && t.b.IsValid() && bytes.Equal(t.a.Key(), t.b.Key()) {
		return t.b.Next()
	}
	return nil
}

func (t *TwoMergeIterator) chooseA() bool {
	if !t.a.IsValid() {
		return false
	}
	if !t.b.IsValid() {
		return true
	}
	return bytes.Compare(t.a.Key(), t.b.Key()) <= 0
}

func (t *TwoMergeIterator) IsValid() bool {
	return t.err == nil && (t.a.IsValid() || t.b.IsValid())
}

func (t *TwoMergeIterator) Key() []byte {
	if t.chooseA() {
		return t.a.Key()
	}
	return t.b.Key()
}

func (t *TwoMergeIterator) Value() []byte {
	if t.chooseA() {
		return t.a.Value()
	}
	return t.b.Value()
}

func (t *TwoMergeIterator) Next() error {
	if t.err != nil {
		return t.err
	}
	if t.chooseA() {
		if err := t.a.Next(); err != nil {
			t.err = err
			return err
		}
	} else {
		if err := t.b.Next(); err != nil {
			t.err = err
			return err
		}
	}
	if err := t.skipB(); err != nil {
		t.err = err
		return err
	}
	return nil
}
