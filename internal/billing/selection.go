package billing

import "sort"

// Selection models the per-family pick state of the invoice screen: which
// ready-to-bill lessons are checked before the batch is submitted. The HTTP
// surface takes the resulting explicit lesson id lists (Selected feeds the
// generate-invoice request body); the toggle semantics live here so the
// select-all behavior is defined in one place.
type Selection map[int]map[int]bool

// NewSelection returns an empty selection.
func NewSelection() Selection {
	return Selection{}
}

// Toggle flips a single lesson in the family's set.
func (s Selection) Toggle(parentID, lessonID int) {
	set := s.family(parentID)
	if set[lessonID] {
		delete(set, lessonID)
		return
	}
	set[lessonID] = true
}

// ToggleAll is the all-or-nothing select-all: if every visible lesson is
// already selected, the whole set is cleared; otherwise all are selected.
// Calling it twice returns to the original state.
func (s Selection) ToggleAll(parentID int, lessonIDs []int) {
	if s.AllSelected(parentID, lessonIDs) {
		delete(s, parentID)
		return
	}
	set := s.family(parentID)
	for _, id := range lessonIDs {
		set[id] = true
	}
}

// AllSelected reports whether every given lesson is selected for the family.
func (s Selection) AllSelected(parentID int, lessonIDs []int) bool {
	if len(lessonIDs) == 0 {
		return false
	}
	set := s[parentID]
	for _, id := range lessonIDs {
		if !set[id] {
			return false
		}
	}
	return true
}

// Selected returns the family's selected lesson ids in ascending order.
func (s Selection) Selected(parentID int) []int {
	set := s[parentID]
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (s Selection) family(parentID int) map[int]bool {
	set, ok := s[parentID]
	if !ok {
		set = map[int]bool{}
		s[parentID] = set
	}
	return set
}
