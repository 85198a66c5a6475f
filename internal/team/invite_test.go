package team

import (
	"strings"
	"testing"
)

func TestNewInviteCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := NewInviteCode()
		if err != nil {
			t.Fatalf("NewInviteCode failed: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 characters, got %q", code)
		}
		for _, c := range code {
			if !strings.ContainsRune(inviteAlphabet, c) {
				t.Fatalf("code %q contains %q outside the alphabet", code, c)
			}
		}
		seen[code] = true
	}
	// 100 draws from 36^6 possibilities colliding down to a handful would
	// point at a broken generator.
	if len(seen) < 90 {
		t.Errorf("expected mostly distinct codes, got %d distinct of 100", len(seen))
	}
}

func TestNewInviteCode_CoversAlphabet(t *testing.T) {
	// 2000 codes give each of the 36 characters an expected count over 300;
	// a character never showing up means the draw is broken.
	counts := make(map[rune]int)
	for i := 0; i < 2000; i++ {
		code, err := NewInviteCode()
		if err != nil {
			t.Fatalf("NewInviteCode failed: %v", err)
		}
		for _, c := range code {
			counts[c]++
		}
	}
	for _, c := range inviteAlphabet {
		if counts[c] == 0 {
			t.Errorf("character %q never generated", c)
		}
	}
}
