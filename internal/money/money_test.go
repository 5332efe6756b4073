package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1000", "1000", false},
		{"$1,250,000.50", "1250000.5", false},
		{"  $42  ", "42", false},
		{"", "0", false},
		{"$", "0", false},
		{"0.01", "0.01", false},
		{"abc", "", true},
		{"12x99", "", true},
		{"-500", "", true},
	}

	for _, tc := range cases {
		got, err := Parse(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Parse(%q): expected error, got %s", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got.String() != tc.want {
			t.Errorf("Parse(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestParseOrZeroDegradesToZero(t *testing.T) {
	for _, in := range []string{"", "garbage", "-100", "$$$x"} {
		if got := ParseOrZero(in); !got.IsZero() {
			t.Errorf("ParseOrZero(%q) = %s, want 0", in, got)
		}
	}
	if got := ParseOrZero("$2,500"); !got.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("ParseOrZero($2,500) = %s, want 2500", got)
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "$0"},
		{"950", "$950"},
		{"1000", "$1,000"},
		{"1250000", "$1,250,000"},
		{"1250000.75", "$1,250,001"},
		{"-42000", "-$42,000"},
	}
	for _, tc := range cases {
		d, _ := decimal.NewFromString(tc.in)
		if got := Format(d); got != tc.want {
			t.Errorf("Format(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
