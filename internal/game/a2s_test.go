package game

import (
	"net"
	"testing"
	"time"

	"github.com/woozymasta/minequery/internal/config"
)

func TestNewProberHost(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "127.0.0.1"},
		{"ANY", "127.0.0.1"},
		{"any", "127.0.0.1"},
		{"10.1.2.3", "10.1.2.3"},
	}

	for _, tt := range tests {
		if got := NewProber(tt.in, config.A2S{Port: 27016}).host; got != tt.want {
			t.Errorf("NewProber(%q).host = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProbeUnreachable(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := pc.LocalAddr().(*net.UDPAddr).Port
	_ = pc.Close()

	p := NewProber("127.0.0.1", config.A2S{Port: port, Timeout: 200 * time.Millisecond, BufferSize: 1400})

	st, err := p.Probe()
	if err == nil {
		t.Fatal("expected error probing closed port")
	}
	if st.Online {
		t.Error("unreachable server reported online")
	}
}
