package network

import "fmt"

// Items is a bidirectional mapping between node indices and item labels.
// Index i always maps to Labels()[i].
type Items struct {
	labels []string
	index  map[string]int
}

// NewItems builds a dictionary from labels ordered by node index
func NewItems(labels []string) (*Items, error) {
	items := &Items{
		labels: make([]string, 0, len(labels)),
		index:  make(map[string]int, len(labels)),
	}
	for _, label := range labels {
		if _, err := items.Add(label); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// Add appends a new label and returns its index
func (it *Items) Add(label string) (int, error) {
	if _, exists := it.index[label]; exists {
		return 0, fmt.Errorf("duplicate item label %q", label)
	}
	idx := len(it.labels)
	it.labels = append(it.labels, label)
	it.index[label] = idx
	return idx, nil
}

// Len returns the number of items
func (it *Items) Len() int { return len(it.labels) }

// Label returns the label of a node index
func (it *Items) Label(idx int) (string, bool) {
	if idx < 0 || idx >= len(it.labels) {
		return "", false
	}
	return it.labels[idx], true
}

// Index returns the node index of a label
func (it *Items) Index(label string) (int, bool) {
	idx, ok := it.index[label]
	return idx, ok
}

// Labels returns a copy of all labels in index order
func (it *Items) Labels() []string {
	out := make([]string, len(it.labels))
	copy(out, it.labels)
	return out
}
