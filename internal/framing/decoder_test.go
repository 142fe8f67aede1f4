package framing

import "testing"

func TestDecoder_Decode(t *testing.T) {
	tests := []struct {
		name   string
		chunks [][]byte
		want   []string
	}{
		{
			name:   "ascii",
			chunks: [][]byte{[]byte("hello")},
			want:   []string{"hello"},
		},
		{
			name:   "multibyte split across notifications",
			chunks: [][]byte{{'a', 0xe2, 0x82}, {0xac, 'b'}},
			want:   []string{"a", "€b"},
		},
		{
			name:   "invalid byte replaced",
			chunks: [][]byte{{'a', 0xff, 'b'}},
			want:   []string{"a�b"},
		},
		{
			name:   "lead byte alone is held",
			chunks: [][]byte{{0xc3}, {0xa9}},
			want:   []string{"", "é"},
		},
		{
			name:   "held bytes that never complete are replaced",
			chunks: [][]byte{{0xe2, 0x82}, {'x'}},
			want:   []string{"", "\uFFFDx"},
		},
		{
			name:   "truncated sequence inside one notification",
			chunks: [][]byte{{'a', 0xe2, 0x82, 'b'}},
			want:   []string{"a\uFFFDb"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder()
			for i, chunk := range tt.chunks {
				got := d.Decode(chunk)
				if got != tt.want[i] {
					t.Errorf("Decode #%d = %q, want %q", i, got, tt.want[i])
				}
			}
		})
	}
}

func TestDecoder_Reset(t *testing.T) {
	d := NewDecoder()
	d.Decode([]byte{0xe2})
	if d.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", d.Pending())
	}
	d.Reset()
	if d.Pending() != 0 {
		t.Errorf("Pending() after Reset = %d, want 0", d.Pending())
	}
	if got := d.Decode([]byte("ok")); got != "ok" {
		t.Errorf("Decode after Reset = %q, want %q", got, "ok")
	}
}
