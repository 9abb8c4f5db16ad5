package query

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/woozymasta/minequery/internal/models"
)

func TestFormatLegacyExample(t *testing.T) {
	snap := models.NewSnapshot("My Server", 25565, []string{"Alice", "Bob"})

	got := string(Format(snap, VariantLegacy))
	want := "SERVERPORT 25565\nPLAYERCOUNT 2\nPLAYERLIST [Alice, Bob]\n"
	if got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestFormatLegacyEmptyList(t *testing.T) {
	snap := models.NewSnapshot("My Server", 25565, nil)

	got := string(Format(snap, VariantLegacy))
	want := "SERVERPORT 25565\nPLAYERCOUNT 0\nPLAYERLIST []\n"
	if got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestFormatLegacyPlayerOrder(t *testing.T) {
	for _, n := range []int{1, 3, 10, 64} {
		names := make([]string, n)
		for i := range names {
			names[i] = fmt.Sprintf("player%02d", n-i)
		}
		snap := models.NewSnapshot("s", 1, names)

		lines := strings.Split(string(Format(snap, VariantLegacy)), "\n")
		if len(lines) != 4 || lines[3] != "" {
			t.Fatalf("n=%d: expected three newline terminated lines, got %q", n, lines)
		}
		if lines[1] != fmt.Sprintf("PLAYERCOUNT %d", n) {
			t.Errorf("n=%d: count line = %q", n, lines[1])
		}
		wantList := "PLAYERLIST [" + strings.Join(names, ", ") + "]"
		if lines[2] != wantList {
			t.Errorf("n=%d: list line = %q, want %q", n, lines[2], wantList)
		}
	}
}

func TestFormatDeterministic(t *testing.T) {
	snap := models.NewSnapshot("My Server", 25565, []string{"Alice", "Bob", "Carol"})

	first := Format(snap, VariantLegacy)
	for i := 0; i < 10; i++ {
		if !bytes.Equal(first, Format(snap, VariantLegacy)) {
			t.Fatal("Format() output differs between calls")
		}
	}
}

func TestFormatUnknownVariantFallsBack(t *testing.T) {
	snap := models.NewSnapshot("My Server", 25565, []string{"Alice"})

	if !bytes.Equal(Format(snap, Variant(42)), Format(snap, VariantLegacy)) {
		t.Error("unknown variant should render the legacy shape")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		line    string
		wantErr error
	}{
		{"", ErrEmptyRequest},
		{"\r\n", ErrEmptyRequest},
		{"\n", ErrEmptyRequest},
		{"QUERY", nil},
		{"QUERY_JSON", nil},
		{"anything at all", nil},
		{" ", nil},
	}

	for _, tt := range tests {
		v, err := Parse(tt.line)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Parse(%q) err = %v, want %v", tt.line, err, tt.wantErr)
		}
		if v != VariantLegacy {
			t.Errorf("Parse(%q) variant = %v, want legacy", tt.line, v)
		}
	}
}

func TestReadLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"QUERY\n", "QUERY"},
		{"QUERY\r\n", "QUERY"},
		{"QUERY", "QUERY"},
		{"", ""},
		{"first\nsecond\n", "first"},
	}

	for _, tt := range tests {
		got, err := readLine(strings.NewReader(tt.in))
		if err != nil {
			t.Fatalf("readLine(%q) err=%v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("readLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := strings.Repeat("x", maxRequestLine*2) + "\n"
	got, err := readLine(strings.NewReader(long))
	if err != nil {
		t.Fatalf("readLine(long) err=%v", err)
	}
	if len(got) != maxRequestLine {
		t.Errorf("readLine(long) length = %d, want %d", len(got), maxRequestLine)
	}

	// the tail of a long line is consumed, the next line is never reached
	r := strings.NewReader(strings.Repeat("y", maxRequestLine+10) + "\nnext\n")
	got, err = readLine(r)
	if err != nil || len(got) != maxRequestLine {
		t.Fatalf("readLine(long+next) len=%d err=%v", len(got), err)
	}
}
