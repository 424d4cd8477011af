package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"invoice/2024:final*.pdf", "invoice-2024-final-.pdf"},
		{`report<draft>?.txt`, "reportdraft.txt"},
		{"  plain.pdf  ", "plain.pdf"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken("Bank Statement (Q3)"); got != "bank_statement__q3" {
		t.Fatalf("unexpected token: %q", got)
	}
	if got := SanitizeToken("   "); got != "unknown" {
		t.Fatalf("empty input should yield unknown, got %q", got)
	}
}

func TestDisplayTitle(t *testing.T) {
	if got := DisplayTitle("/inbox/2024-03_bank_statement.pdf"); got != "2024 03 Bank Statement" {
		t.Fatalf("unexpected title: %q", got)
	}
	if got := DisplayTitle(""); got != "Untitled" {
		t.Fatalf("expected Untitled for empty path, got %q", got)
	}
}
