package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestStringListUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want StringList
	}{
		{"bare string", `"Paris"`, StringList{"Paris"}},
		{"array", `["A","C"]`, StringList{"A", "C"}},
		{"empty string", `""`, StringList{""}},
		{"empty array", `[]`, StringList{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got StringList
			if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
				t.Fatalf("Unmarshal(%s): %v", tt.in, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	var got StringList
	if err := json.Unmarshal([]byte(`42`), &got); err == nil {
		t.Error("expected error for non-string JSON")
	}
}

func TestStringListMarshal(t *testing.T) {
	// Single values keep the bare-string wire shape.
	data, err := json.Marshal(StringList{"Paris"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"Paris"` {
		t.Errorf("single value = %s, want bare string", data)
	}

	data, err = json.Marshal(StringList{"A", "C"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `["A","C"]` {
		t.Errorf("multi value = %s, want array", data)
	}
}

func TestStringListEmpty(t *testing.T) {
	tests := []struct {
		name string
		in   StringList
		want bool
	}{
		{"nil", nil, true},
		{"single empty", StringList{""}, true},
		{"value", StringList{"A"}, false},
		{"mixed", StringList{"", "A"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Empty(); got != tt.want {
				t.Errorf("Empty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSumPoints(t *testing.T) {
	test := Test{
		Questions: []Question{
			{ID: "q1", Points: 5},
			{ID: "q2", Points: 10},
		},
	}
	if got := test.SumPoints(); got != 15 {
		t.Errorf("SumPoints() = %d, want 15", got)
	}
	if got := (Test{}).SumPoints(); got != 0 {
		t.Errorf("SumPoints() on empty test = %d, want 0", got)
	}
}
