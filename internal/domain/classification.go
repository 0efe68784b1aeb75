package domain

import "fmt"

// Category buckets a user turn by how the pipeline should answer it.
type Category string

const (
	// CategoryRetrievable means the question can be answered from the
	// data backend and goes through decomposition and retrieval.
	CategoryRetrievable Category = "Retrievable"
	// CategoryNonRetrievable means the question is conversational or
	// off-domain and is answered directly, without retrieval.
	CategoryNonRetrievable Category = "NonRetrievable"
	// CategoryUnsafe means the turn (or the session) was judged harmful
	// and must be refused.
	CategoryUnsafe Category = "Unsafe"
)

// Valid reports whether c is one of the three known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryRetrievable, CategoryNonRetrievable, CategoryUnsafe:
		return true
	}
	return false
}

// Classification is the classifier's verdict for one turn. Reasoning is
// advisory text carried into later prompts; it is never parsed for
// control flow.
type Classification struct {
	Category  Category
	Reasoning string
}

// Validate checks that the classification decoded into a usable shape.
func (c Classification) Validate() error {
	if !c.Category.Valid() {
		return fmt.Errorf("unknown classification category %q", c.Category)
	}
	return nil
}
