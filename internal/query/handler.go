package query

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/minequery/internal/source"
)

const (
	// maxRequestLine bounds how much of a request is kept; longer input is truncated.
	maxRequestLine = 1024

	// maxDiscard and discardTimeout bound skipping the tail of a truncated line.
	maxDiscard     = 64 << 10
	discardTimeout = time.Second
)

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// Locator resolves a client IP to an ISO country code.
type Locator interface {
	GetCountryCode(ip string) string
}

// HandlerOptions tunes per-connection behaviour.
type HandlerOptions struct {
	// Locator is optional, it only annotates verbose logs.
	Locator Locator

	// ReadTimeout bounds the wait for the request line. Zero waits until the
	// client sends a line, disconnects or the OS drops the socket.
	ReadTimeout time.Duration

	// Verbose logs every request line with its remote address.
	Verbose bool
}

// Handler performs exactly one request/response cycle per connection.
type Handler struct {
	source  source.Source
	locator Locator
	timeout time.Duration
	verbose bool
}

// NewHandler creates a handler answering from src.
func NewHandler(src source.Source, opts HandlerOptions) *Handler {
	return &Handler{
		source:  src,
		locator: opts.Locator,
		timeout: opts.ReadTimeout,
		verbose: opts.Verbose,
	}
}

// Handle reads one line, answers it and closes conn. Failures are logged and
// never leave this method.
func (h *Handler) Handle(conn net.Conn) {
	start := time.Now()
	remote := conn.RemoteAddr().String()

	defer func() { _ = conn.Close() }()
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("remote", remote).
				Interface("panic", r).
				Msg("Query handler panic recovered")
		}
	}()

	if h.timeout > 0 {
		_ = conn.SetReadDeadline(start.Add(h.timeout))
	}

	line, err := readLine(conn)
	if err != nil {
		log.Warn().
			Err(err).
			Str("remote", remote).
			Msg("Failed to read query request")
		return
	}

	if h.verbose {
		ev := log.Info().
			Str("remote", remote).
			Str("request", line)
		if h.locator != nil {
			if country := h.locator.GetCountryCode(remoteIP(conn.RemoteAddr())); country != "" {
				ev = ev.Str("country", country)
			}
		}
		ev.Msg("Received query request")
	}

	variant, err := Parse(line)
	if errors.Is(err, ErrEmptyRequest) {
		log.Debug().Str("remote", remote).Msg("Empty query request, closing")
		return
	}

	snap, err := h.source.Snapshot(context.Background())
	if err != nil {
		log.Warn().
			Err(err).
			Str("remote", remote).
			Msg("Failed to capture server snapshot")
		return
	}

	if _, err := conn.Write(Format(snap, variant)); err != nil {
		log.Warn().
			Err(err).
			Str("remote", remote).
			Msg("Failed to write query response")
		return
	}

	log.Debug().
		Str("remote", remote).
		Str("variant", variant.String()).
		Int("players", snap.PlayerCount).
		Dur("duration", time.Since(start)).
		Msg("Query handled")
}

// readLine returns the first line without its terminator. Data closed by EOF
// without a newline still counts as a line; EOF before any data yields "".
// Lines longer than maxRequestLine are truncated and the rest is read and
// dropped, up to maxDiscard bytes or discardTimeout, so the reply is not
// lost to a reset caused by unread input.
func readLine(r io.Reader) (string, error) {
	br := bufio.NewReaderSize(r, maxRequestLine)

	var (
		line     []byte
		read     int
		draining bool
	)

	for {
		chunk, err := br.ReadSlice('\n')
		read += len(chunk)
		if room := maxRequestLine - len(line); room > 0 {
			line = append(line, chunk[:min(room, len(chunk))]...)
		}

		if errors.Is(err, bufio.ErrBufferFull) {
			if read >= maxRequestLine+maxDiscard {
				break
			}
			if !draining {
				draining = true
				if d, ok := r.(readDeadliner); ok {
					_ = d.SetReadDeadline(time.Now().Add(discardTimeout))
				}
			}
			continue
		}

		if err != nil && !errors.Is(err, io.EOF) && !draining {
			return "", err
		}
		break
	}

	return strings.TrimRight(string(line), "\r\n"), nil
}

// remoteIP strips the port from a connection address.
func remoteIP(addr net.Addr) string {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String()
	}

	ip, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}

	return ip
}
