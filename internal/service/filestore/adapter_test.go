package filestore

import "testing"

func TestPath(t *testing.T) {
	tests := []struct {
		root     string
		expected string
	}{
		{"ivr2:/5/Phone", "ivr2:/5/Phone/0501234567/000.wav"},
		{"ivr2:/5/Phone/", "ivr2:/5/Phone/0501234567/000.wav"},
	}

	for _, tt := range tests {
		if got := Path(tt.root, "0501234567", "000.wav"); got != tt.expected {
			t.Errorf("Path(%q) = %s, want %s", tt.root, got, tt.expected)
		}
	}
}
