package query

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
)

var (
	// ErrPortInUse reports that another socket already holds the address.
	ErrPortInUse = errors.New("port already in use")

	// ErrBindFailure covers every other bind error (bad address, permissions).
	ErrBindFailure = errors.New("failed to bind query listener")
)

// accept retry backoff bounds, same as net/http
const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// State is the listener lifecycle position.
type State int32

// Listener lifecycle: Unbound -> Bound -> Accepting -> Closed.
const (
	StateUnbound State = iota
	StateBound
	StateAccepting
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	case StateAccepting:
		return "accepting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnHandler takes full ownership of an accepted connection, including closing it.
type ConnHandler interface {
	Handle(conn net.Conn)
}

// BindConfig is the query listener address. A blank or ANY host binds every interface.
type BindConfig struct {
	Host string
	Port int
}

// Address returns the host:port string passed to net.Listen.
func (c BindConfig) Address() string {
	host := strings.TrimSpace(c.Host)
	if strings.EqualFold(host, "ANY") {
		host = ""
	}

	return net.JoinHostPort(host, strconv.Itoa(c.Port))
}

// Listener owns the bound server socket and the accept loop.
type Listener struct {
	ln      net.Listener
	handler ConnHandler
	state   *atomic.Int32

	// active holds the connections whose handler has not returned yet.
	mu     sync.Mutex
	active map[net.Conn]struct{}

	conns sync.WaitGroup
	once  sync.Once
}

// Bind opens the passive socket. Nothing is served until Serve is called,
// so a bind failure is told apart from an accept loop failure.
func Bind(cfg BindConfig, handler ConnHandler) (*Listener, error) {
	addr := cfg.Address()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if isAddrInUse(err) {
			return nil, fmt.Errorf("%w: %s: %w", ErrPortInUse, addr, err)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrBindFailure, addr, err)
	}

	return &Listener{
		ln:      ln,
		handler: handler,
		state:   atomic.NewInt32(int32(StateBound)),
		active:  make(map[net.Conn]struct{}),
	}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// State returns the current lifecycle state. A nil listener is unbound.
func (l *Listener) State() State {
	if l == nil {
		return StateUnbound
	}

	return State(l.state.Load())
}

// Serve runs the accept loop until Close. Every connection is handled on its
// own goroutine. Closing the listener is the normal way out and returns nil;
// other accept errors are logged and retried.
func (l *Listener) Serve() error {
	if !l.state.CAS(int32(StateBound), int32(StateAccepting)) {
		if l.State() == StateClosed {
			return nil
		}
		return fmt.Errorf("query listener is %s, cannot serve", l.State())
	}

	log.Info().Str("address", l.ln.Addr().String()).Msg("Query server listening")

	var delay time.Duration
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || l.State() == StateClosed {
				log.Debug().Msg("Query listener closed, accept loop stopped")
				return nil
			}

			if delay == 0 {
				delay = minAcceptDelay
			} else {
				delay *= 2
			}
			if delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}

			log.Warn().Err(err).Dur("retry_in", delay).Msg("Query accept failed")
			time.Sleep(delay)
			continue
		}
		delay = 0

		l.conns.Add(1)
		l.track(conn, true)
		go func() {
			defer l.conns.Done()
			defer l.track(conn, false)
			l.handler.Handle(conn)
		}()
	}
}

// Close closes the socket and unblocks a pending Accept. It is safe to call
// from any goroutine, on a nil listener, and more than once; only the first
// call can return an error.
func (l *Listener) Close() error {
	if l == nil {
		return nil
	}

	var err error
	l.once.Do(func() {
		l.state.Store(int32(StateClosed))
		err = l.ln.Close()
	})

	return err
}

// Drain waits up to grace for in-flight handlers after Close and Serve have
// returned. When grace expires every remaining connection gets an expired
// deadline, failing its pending read or write, and Drain waits for those
// handlers to return. It reports whether all handlers finished within grace.
func (l *Listener) Drain(grace time.Duration) bool {
	if l == nil {
		return true
	}

	done := make(chan struct{})
	go func() {
		l.conns.Wait()
		close(done)
	}()

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
	}

	l.expire()
	<-done

	return false
}

func (l *Listener) track(conn net.Conn, add bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if add {
		l.active[conn] = struct{}{}
	} else {
		delete(l.active, conn)
	}
}

func (l *Listener) expire() {
	l.mu.Lock()
	defer l.mu.Unlock()

	past := time.Unix(1, 0)
	for conn := range l.active {
		_ = conn.SetDeadline(past)
	}

	log.Warn().Int("connections", len(l.active)).Msg("Dropping query connections still open after shutdown grace")
}
