package telegram

import "testing"

func TestSplitCallback(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		unique  string
		payload string
	}{
		{"\fset_group|1.1", "set_group", "1.1"},
		{"set_group|6.2", "set_group", "6.2"},
		{"\fset_group", "set_group", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		unique, payload := splitCallback(tt.in)
		if unique != tt.unique || payload != tt.payload {
			t.Fatalf("splitCallback(%q) = (%q, %q), want (%q, %q)",
				tt.in, unique, payload, tt.unique, tt.payload)
		}
	}
}
