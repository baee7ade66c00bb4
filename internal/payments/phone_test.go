package payments

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"0712345678", "254712345678", false},
		{"0110345678", "254110345678", false},
		{"+254712345678", "254712345678", false},
		{"254712345678", "254712345678", false},
		{"0712 345 678", "254712345678", false},
		{"+254-712-345-678", "254712345678", false},
		{"  0712345678  ", "254712345678", false},
		{"0812345678", "", true},  // not a mobile prefix
		{"071234567", "", true},   // too short
		{"07123456789", "", true}, // too long
		{"25571234567", "", true}, // wrong country
		{"hello", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizePhone(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NormalizePhone(%q) = %q, want error", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizePhone(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
