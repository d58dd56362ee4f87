package engage

import "testing"

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1,234", 1234},
		{"1.2K", 1200},
		{"3M", 3000000},
		{"1.5B", 1500000000},
		{"N/A", 0},
		{"n/a", 0},
		{"", 0},
		{"  42  ", 42},
		{"3.7", 3},
		{"12,345.6K", 12345600},
		{"garbage", 0},
		{"K", 0},
		{"-5", -5},
	}

	for _, tt := range tests {
		if got := ParseCount(tt.in); got != tt.want {
			t.Errorf("ParseCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
