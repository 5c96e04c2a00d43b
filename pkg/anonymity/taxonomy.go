package anonymity

import (
	"fmt"

	"github.com/inferloop/privkit/pkg/errors"
)

// Taxonomy is a categorical generalization hierarchy supplied externally as a
// label-to-parent mapping with a single root. Generalizing at level d maps a
// label to its ancestor d steps above the deepest leaves; level equal to the
// tree height collapses every label to the root, which is
// suppression-equivalent.
type Taxonomy struct {
	root   string
	parent map[string]string
	depth  map[string]int
	height int
}

// NewTaxonomy builds a taxonomy from the root label and a child-to-parent
// mapping. Every chain must terminate at the root; cycles and dangling
// parents are rejected.
func NewTaxonomy(root string, parents map[string]string) (*Taxonomy, error) {
	if root == "" {
		return nil, errors.NewInvalidParameter("taxonomy root must not be empty")
	}
	owned := make(map[string]string, len(parents))
	for label, parent := range parents {
		if label == root {
			return nil, errors.NewInvalidParameter("taxonomy root cannot have a parent")
		}
		owned[label] = parent
	}

	depth := map[string]int{root: 0}
	height := 0
	for label := range owned {
		d, err := chainDepth(label, root, owned)
		if err != nil {
			return nil, err
		}
		depth[label] = d
		if d > height {
			height = d
		}
	}
	return &Taxonomy{root: root, parent: owned, depth: depth, height: height}, nil
}

// chainDepth walks from label to the root counting edges. The walk is bounded
// by the mapping size so a cycle cannot loop forever.
func chainDepth(label, root string, parents map[string]string) (int, error) {
	depth := 0
	current := label
	for current != root {
		parent, ok := parents[current]
		if !ok {
			return 0, errors.NewInvalidParameter(
				fmt.Sprintf("taxonomy label %q does not reach the root", current))
		}
		current = parent
		depth++
		if depth > len(parents) {
			return 0, errors.NewInvalidParameter(
				fmt.Sprintf("taxonomy contains a cycle through %q", label))
		}
	}
	return depth, nil
}

// Root returns the root label
func (t *Taxonomy) Root() string {
	return t.root
}

// Height returns the length of the longest chain from any label to the root
func (t *Taxonomy) Height() int {
	return t.height
}

// Contains reports whether the label is part of the taxonomy
func (t *Taxonomy) Contains(label string) bool {
	_, ok := t.depth[label]
	return ok
}

// Ancestor returns the generalization of label at the requested level. The
// result is the ancestor at absolute depth height-level, so labels already at
// or above that depth are fixed points and re-applying a level is idempotent.
// A level deeper than the tree height is rejected; level 0 is the identity.
func (t *Taxonomy) Ancestor(label string, level int) (string, error) {
	if level < 0 {
		return "", errors.WrapError(errors.ErrInvalidDepth, errors.ErrorTypeValidation,
			errors.CodeInvalidParameter, fmt.Sprintf("taxonomy level is %d", level))
	}
	if level > t.height {
		return "", errors.WrapError(errors.ErrInvalidTaxonomyLevel, errors.ErrorTypeValidation,
			errors.CodeInvalidParameter,
			fmt.Sprintf("level %d exceeds tree height %d", level, t.height))
	}
	if level == 0 {
		return label, nil
	}
	current := label
	currentDepth, ok := t.depth[current]
	if !ok {
		return "", errors.NewInvalidParameter(
			fmt.Sprintf("label %q is not part of the taxonomy", label))
	}
	target := t.height - level
	for currentDepth > target {
		current = t.parent[current]
		currentDepth--
	}
	return current, nil
}
