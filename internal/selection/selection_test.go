package selection

import (
	"reflect"
	"testing"
)

var visible = []string{"A", "B", "C", "D"}

func TestSelect(t *testing.T) {
	tests := []struct {
		name       string
		mod        Modifier
		item       string
		current    []string
		anchor     string
		want       []string
		wantAnchor string
	}{
		{
			name: "plain click replaces selection",
			mod:  None, item: "C", current: []string{"A", "B"}, anchor: "A",
			want: []string{"C"}, wantAnchor: "C",
		},
		{
			name: "toggle adds",
			mod:  Toggle, item: "C", current: []string{"A"}, anchor: "A",
			want: []string{"A", "C"}, wantAnchor: "C",
		},
		{
			name: "toggle removes exactly one",
			mod:  Toggle, item: "B", current: []string{"A", "B", "D"}, anchor: "A",
			want: []string{"A", "D"}, wantAnchor: "B",
		},
		{
			name: "range forward keeps anchor",
			mod:  Range, item: "C", current: []string{"A"}, anchor: "A",
			want: []string{"A", "B", "C"}, wantAnchor: "A",
		},
		{
			name: "range backward is min..max",
			mod:  Range, item: "A", current: []string{"C"}, anchor: "C",
			want: []string{"A", "B", "C"}, wantAnchor: "C",
		},
		{
			name: "range replaces prior selection",
			mod:  Range, item: "D", current: []string{"A", "B"}, anchor: "C",
			want: []string{"C", "D"}, wantAnchor: "C",
		},
		{
			name: "range with invisible anchor is a plain click",
			mod:  Range, item: "B", current: []string{"Z"}, anchor: "Z",
			want: []string{"B"}, wantAnchor: "B",
		},
		{
			name: "range without anchor is a plain click",
			mod:  Range, item: "B", current: nil, anchor: "",
			want: []string{"B"}, wantAnchor: "B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, anchor := Select(tt.mod, tt.item, tt.current, visible, tt.anchor)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("selection = %v, want %v", got, tt.want)
			}
			if anchor != tt.wantAnchor {
				t.Errorf("anchor = %q, want %q", anchor, tt.wantAnchor)
			}
		})
	}
}

func TestSelectDoesNotMutateInputs(t *testing.T) {
	current := []string{"A", "B", "C"}
	vis := []string{"A", "B", "C", "D"}

	got, _ := Select(Toggle, "B", current, vis, "A")
	got = append(got, "X")
	_ = got

	if !reflect.DeepEqual(current, []string{"A", "B", "C"}) {
		t.Errorf("current mutated: %v", current)
	}

	rng, _ := Select(Range, "B", nil, vis, "A")
	rng[0] = "mutated"
	if vis[0] != "A" {
		t.Errorf("visible mutated through range result: %v", vis)
	}
}

func TestFromKeys(t *testing.T) {
	if FromKeys(true, false, true) != Toggle {
		t.Error("ctrl should win over shift")
	}
	if FromKeys(false, true, false) != Toggle {
		t.Error("meta should toggle")
	}
	if FromKeys(false, false, true) != Range {
		t.Error("shift should range")
	}
	if FromKeys(false, false, false) != None {
		t.Error("no keys should be None")
	}
}

func TestParseModifierRoundTrip(t *testing.T) {
	for _, m := range []Modifier{None, Toggle, Range} {
		if got := ParseModifier(m.String()); got != m {
			t.Errorf("ParseModifier(%q) = %v, want %v", m.String(), got, m)
		}
	}
}
