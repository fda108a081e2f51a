package memory

// Outcome reports what a mutating action did.
//
// Applied is true when the in-memory state changed. Persisted is true when
// that state reached storage; when Applied is true and Persisted is false,
// Err holds the storage error and the change lives only in memory until a
// later action writes it through.
type Outcome struct {
	Applied   bool
	Persisted bool
	Err       error
}

// Unsaved reports whether the change was applied but not written.
func (o Outcome) Unsaved() bool {
	return o.Applied && !o.Persisted
}

func notApplied() Outcome {
	return Outcome{}
}
