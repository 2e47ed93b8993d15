package bitmap

import "testing"

/* TestNewCoversMaxID verifies the word count always includes maxID itself. */
func TestNewCoversMaxID(t *testing.T) {
	tests := []struct {
		name    string
		maxID   int
		wantLen int
	}{
		{"negative is empty", -1, 0},
		{"zero", 0, 1},
		{"last bit of first word", 63, 1},
		{"first bit of second word", 64, 2},
		{"large", 150000, 150000/64 + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bm := New(tt.maxID)
			if got := len(bm.data); got != tt.wantLen {
				t.Fatalf("New(%d) words = %d, want %d", tt.maxID, got, tt.wantLen)
			}
			if tt.maxID >= 0 {
				bm.Add(tt.maxID)
				if !bm.Has(tt.maxID) {
					t.Fatalf("Has(%d) = false after Add", tt.maxID)
				}
			}
		})
	}
}

/* TestAddAndHas verifies word boundaries and that bad ids are ignored. */
func TestAddAndHas(t *testing.T) {
	bm := New(200)
	for _, id := range []int{-1, 0, 63, 64, 200, 1000} {
		bm.Add(id)
	}
	for _, tc := range []struct {
		id   int
		want bool
	}{
		{0, true}, {63, true}, {64, true}, {200, true},
		{1, false}, {65, false}, {199, false}, {-1, false}, {1000, false},
	} {
		if got := bm.Has(tc.id); got != tc.want {
			t.Errorf("Has(%d) = %v, want %v", tc.id, got, tc.want)
		}
	}
	if bm.Len() != 4 {
		t.Fatalf("Len = %d, want 4", bm.Len())
	}
}

/* TestOf verifies a bitmap built from ids holds exactly those ids. */
func TestOf(t *testing.T) {
	bm := Of(707, 3, -5, 3)
	if !bm.Has(707) || !bm.Has(3) || bm.Has(4) || bm.Len() != 2 {
		t.Fatalf("Of = %v", bm.data)
	}
	if Of().Len() != 0 {
		t.Fatal("Of() should be empty")
	}
}
