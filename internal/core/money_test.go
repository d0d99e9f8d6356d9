package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1.00", true},
		{"1.0", "1.00", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0", "0.00", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.50", true},
		{"-1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"NaN", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || FormatAmount(got) != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, FormatAmount(got), err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseCellAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"₹1,234.50", "1234.50", true},
		{"1,234", "1234.00", true},
		{"₹1,234", "1234.00", true},
		{"1,234,567", "1234567.00", true},
		{"1,23,456", "123456.00", true},
		{"12,34", "12.34", true},
		{"1,234,56", "", false},
		{"Rs. 99", "99.00", true},
		{"12.5", "12.50", true},
		{"twelve", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseCellAmount(tc.in)
		if ok != tc.ok {
			t.Fatalf("%q ok=%v, want %v", tc.in, ok, tc.ok)
		}
		if ok && FormatAmount(got) != tc.out {
			t.Fatalf("%q expected %s, got %s", tc.in, tc.out, FormatAmount(got))
		}
	}
}
