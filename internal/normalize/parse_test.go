package normalize

import "testing"

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"1,234.5", 1234.5, true},
		{"4,500.25", 4500.25, true},
		{" 12 ", 12, true},
		{"1,000,000", 1000000, true},
		{"-3.75", -3.75, true},
		{"", 0, false},
		{"N/A", 0, false},
		{"#VALUE!", 0, false},
		{"12abc", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParsePrice(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParsePrice(%q) = (%v, %v), expected (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"-2.3%", -2.3, true},
		{"1.2%", 1.2, true},
		{"0.45", 0.45, true},
		{" 3.1 % ", 3.1, true},
		{"1,250.5%", 1250.5, true},
		{"%", 0, false},
		{"", 0, false},
		{"up", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParsePercent(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParsePercent(%q) = (%v, %v), expected (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
