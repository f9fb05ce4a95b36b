// Package selection computes multi-select state for the note list from click
// modifiers. Everything here is pure: inputs are never mutated.
package selection

// Modifier is the key held while clicking an item.
type Modifier int

const (
	// None replaces the selection with the clicked item.
	None Modifier = iota
	// Toggle (ctrl/cmd) adds or removes the clicked item.
	Toggle
	// Range (shift) selects everything between the anchor and the clicked item.
	Range
)

// FromKeys maps raw key state to a Modifier. Ctrl/cmd wins over shift.
func FromKeys(ctrl, meta, shift bool) Modifier {
	switch {
	case ctrl || meta:
		return Toggle
	case shift:
		return Range
	default:
		return None
	}
}

// String returns the wire name of the modifier.
func (m Modifier) String() string {
	switch m {
	case Toggle:
		return "toggle"
	case Range:
		return "range"
	default:
		return "none"
	}
}

// ParseModifier is the inverse of String. Unknown names map to None.
func ParseModifier(s string) Modifier {
	switch s {
	case "toggle":
		return Toggle
	case "range":
		return Range
	default:
		return None
	}
}

// Select returns the selection and anchor that result from clicking item.
//
// A range click whose anchor (or item) is not in visible degrades to a plain
// click. A range click keeps the anchor; every other click moves it to item.
func Select(mod Modifier, item string, current, visible []string, anchor string) ([]string, string) {
	switch mod {
	case Toggle:
		return toggle(current, item), item

	case Range:
		if anchor == "" {
			break
		}
		start, end := indexOf(visible, anchor), indexOf(visible, item)
		if start < 0 || end < 0 {
			break
		}
		if start > end {
			start, end = end, start
		}
		out := make([]string, end-start+1)
		copy(out, visible[start:end+1])
		return out, anchor
	}

	return []string{item}, item
}

func toggle(current []string, item string) []string {
	out := make([]string, 0, len(current)+1)
	found := false
	for _, p := range current {
		if p == item {
			found = true
			continue
		}
		out = append(out, p)
	}
	if !found {
		out = append(out, item)
	}
	return out
}

func indexOf(paths []string, p string) int {
	for i, v := range paths {
		if v == p {
			return i
		}
	}
	return -1
}
