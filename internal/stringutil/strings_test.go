package stringutil

import "testing"

func TestIsNumeric(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"Valid digits", "123456", true},
		{"Leading zero", "07", true},
		{"Empty string", "", false},
		{"Contains letter", "123a456", false},
		{"Contains space", "12 3", false},
		{"Only letters", "abc", false},
		{"Special chars", "123-456", false},
		{"Fullwidth digits", "１２", false},
		{"Dice emoji", "🎲", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsNumeric(tt.input); got != tt.want {
				t.Errorf("IsNumeric(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripWhitespace(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input string
		want  string
	}{
		{"貓 笑", "貓笑"},
		{"  /阿 貓\t", "/阿貓"},
		{"a　b\nc", "abc"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := StripWhitespace(tt.input); got != tt.want {
				t.Errorf("StripWhitespace(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestContainsRuneSet(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		s     string
		chars string
		want  bool
	}{
		{"All present", "王小明", "王明", true},
		{"Out of order", "王小明", "明王", true},
		{"Repeated query rune", "王小明", "明明王", true},
		{"Not contiguous", "資訊工程學系", "資工系", true},
		{"Missing char", "王小", "王明", false},
		{"Empty chars", "test", "", true},
		{"Empty string", "", "test", false},
		{"Case sensitive as given", "Cat", "c", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ContainsRuneSet(tt.s, tt.chars); got != tt.want {
				t.Errorf("ContainsRuneSet(%q, %q) = %v, want %v", tt.s, tt.chars, got, tt.want)
			}
		})
	}
}
