package schedule

import (
	"reflect"
	"testing"
)

func TestMergeCanonicalForm(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   []Interval
		want []Interval
	}{
		{name: "empty", in: nil, want: nil},
		{name: "single", in: []Interval{{60, 120}}, want: []Interval{{60, 120}}},
		{
			name: "overlapping",
			in:   []Interval{{60, 180}, {120, 240}},
			want: []Interval{{60, 240}},
		},
		{
			name: "adjacent",
			in:   []Interval{{600, 720}, {720, 840}},
			want: []Interval{{600, 840}},
		},
		{
			name: "unsorted disjoint",
			in:   []Interval{{900, 960}, {60, 120}},
			want: []Interval{{60, 120}, {900, 960}},
		},
		{
			name: "contained",
			in:   []Interval{{0, 1440}, {100, 200}},
			want: []Interval{{0, 1440}},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Merge(%v) = %v, want %v", tt.in, got, tt.want)
			}
			// canonical form: sorted, disjoint, non-adjacent
			for i := 1; i < len(got); i++ {
				if got[i-1].End >= got[i].Start {
					t.Fatalf("not canonical: %v", got)
				}
			}
		})
	}
}

func TestInvertPartitionsDay(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		off  []Interval
		want []Interval
	}{
		{name: "empty off means all on", off: nil, want: []Interval{{0, 1440}}},
		{name: "full day off", off: []Interval{{0, 1440}}, want: nil},
		{
			name: "middle outage",
			off:  []Interval{{600, 840}},
			want: []Interval{{0, 600}, {840, 1440}},
		},
		{
			name: "outage at midnight",
			off:  []Interval{{0, 120}},
			want: []Interval{{120, 1440}},
		},
		{
			name: "unmerged input",
			off:  []Interval{{600, 720}, {720, 840}},
			want: []Interval{{0, 600}, {840, 1440}},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := Invert(tt.off)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Invert(%v) = %v, want %v", tt.off, got, tt.want)
			}

			// partition law: off ∪ on covers [0,1440) exactly, disjoint
			all := Merge(append(append([]Interval(nil), tt.off...), got...))
			if !reflect.DeepEqual(all, []Interval{{0, 1440}}) {
				t.Fatalf("union is not the full day: %v", all)
			}
			total := 0
			for _, iv := range Merge(tt.off) {
				total += iv.End - iv.Start
			}
			for _, iv := range got {
				total += iv.End - iv.Start
			}
			if total != MinutesPerDay {
				t.Fatalf("overlap detected: total minutes = %d", total)
			}
		})
	}
}

func TestInvertRoundTrip(t *testing.T) {
	t.Parallel()
	off := []Interval{{600, 840}, {1200, 1320}}
	if got := Invert(Invert(off)); !reflect.DeepEqual(got, Merge(off)) {
		t.Fatalf("Invert(Invert(off)) = %v, want %v", got, Merge(off))
	}
}

func TestStringsRendering(t *testing.T) {
	t.Parallel()
	got := Strings([]Interval{{840, 1440}, {0, 600}})
	want := []string{"00:00–10:00", "14:00–24:00"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Strings = %v, want %v", got, want)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "both separators",
			in:   []string{"12:00-14:00", "10:00–12:00"},
			want: []string{"10:00–14:00"},
		},
		{
			name: "unparsable entries dropped",
			in:   []string{"garbage", "10:00–12:00", "25:99-bad"},
			want: []string{"10:00–12:00"},
		},
		{name: "all garbage", in: []string{"x", ""}, want: nil},
		{name: "empty", in: nil, want: nil},
		{
			name: "midnight end",
			in:   []string{"22:00-24:00"},
			want: []string{"22:00–24:00"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Normalize(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseInterval(t *testing.T) {
	t.Parallel()
	if _, err := ParseInterval("14:00–12:00"); err == nil {
		t.Fatal("expected error for start >= end")
	}
	iv, err := ParseInterval(" 10:00 – 12:30 ")
	if err != nil {
		t.Fatalf("ParseInterval: %v", err)
	}
	if iv.Start != 600 || iv.End != 750 {
		t.Fatalf("unexpected interval: %+v", iv)
	}
}

func TestDiff(t *testing.T) {
	t.Parallel()
	added, removed := Diff(
		[]string{"10:00–12:00", "14:00–16:00"},
		[]string{"10:00-12:00", "18:00-20:00"},
	)
	if !reflect.DeepEqual(added, []string{"18:00–20:00"}) {
		t.Fatalf("added = %v", added)
	}
	if !reflect.DeepEqual(removed, []string{"14:00–16:00"}) {
		t.Fatalf("removed = %v", removed)
	}
}
