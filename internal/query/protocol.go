// Package query implements the line-based TCP status protocol: one request line in,
// one response out, connection closed by the server.
package query

import (
	"errors"
	"strconv"
	"strings"

	"github.com/woozymasta/minequery/internal/models"
)

// ErrEmptyRequest is returned by Parse when the client sent nothing.
var ErrEmptyRequest = errors.New("empty request")

// Variant selects the response shape.
type Variant int

const (
	// VariantLegacy is the three line SERVERPORT / PLAYERCOUNT / PLAYERLIST response.
	// Request content is read but not interpreted.
	VariantLegacy Variant = iota
)

// String returns the variant name.
func (v Variant) String() string {
	switch v {
	case VariantLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// Parse classifies a request line. Any non-empty line selects the legacy shape,
// historical clients send arbitrary content.
func Parse(line string) (Variant, error) {
	if strings.TrimRight(line, "\r\n") == "" {
		return VariantLegacy, ErrEmptyRequest
	}

	return VariantLegacy, nil
}

// Format renders the snapshot for the variant. Output is deterministic and
// unknown variants get the legacy shape.
func Format(s models.Snapshot, v Variant) []byte {
	switch v {
	default:
		return formatLegacy(s)
	}
}

// formatLegacy must stay byte-identical for existing clients:
//
//	SERVERPORT 25565
//	PLAYERCOUNT 2
//	PLAYERLIST [Alice, Bob]
func formatLegacy(s models.Snapshot) []byte {
	var b strings.Builder

	b.WriteString("SERVERPORT ")
	b.WriteString(strconv.Itoa(s.ListenPort))
	b.WriteString("\nPLAYERCOUNT ")
	b.WriteString(strconv.Itoa(s.PlayerCount))
	b.WriteString("\nPLAYERLIST [")
	b.WriteString(strings.Join(s.PlayerNames, ", "))
	b.WriteString("]\n")

	return []byte(b.String())
}
