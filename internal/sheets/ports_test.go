package sheets

import "testing"

func TestColumnLetter(t *testing.T) {
	cases := map[int]string{0: "A", 1: "B", 5: "F", 25: "Z", 26: "AA", 27: "AB", 701: "ZZ", 702: "AAA"}
	for in, want := range cases {
		if got := ColumnLetter(in); got != want {
			t.Fatalf("ColumnLetter(%d) = %s, want %s", in, got, want)
		}
	}
}

func TestToStrings(t *testing.T) {
	got := ToStrings([]any{" a ", 12.5, true, nil, int64(3)})
	want := []string{"a", "12.5", "TRUE", "", "3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHeaderMatches(t *testing.T) {
	header := []string{"Key", "Value"}
	if !HeaderMatches([]string{"key", " VALUE ", "extra"}, header) {
		t.Fatalf("expected case-insensitive match")
	}
	if HeaderMatches([]string{"Key"}, header) {
		t.Fatalf("short row should not match")
	}
	if !IsEmptyRow([]string{"", "  "}) || IsEmptyRow([]string{"", "x"}) {
		t.Fatalf("IsEmptyRow misbehaves")
	}
}
