package server

import (
	"sync"
	"time"

	"github.com/woozymasta/minequery/internal/config"
	"github.com/woozymasta/minequery/internal/query"
	"github.com/woozymasta/minequery/internal/source"
	"github.com/woozymasta/minequery/internal/updater"
)

// State holds the dependencies, configuration and runtime handles of one
// running query server and its heartbeat.
type State struct {
	// cfg is the parsed application configuration, read on every Enable.
	cfg *config.Config

	// source provides live server metrics to the query handler and the heartbeat.
	source source.Source

	// opts carries the optional collaborators (GeoIP, history, probe).
	opts Options

	// bind is the resolved listen address of the query server.
	bind query.BindConfig

	// listener is the active query listener, nil while disabled or when binding failed.
	listener *query.Listener

	// serveDone is closed when the accept loop of listener returns.
	serveDone chan struct{}

	// grace is how long Disable lets in-flight queries finish before dropping them.
	grace time.Duration

	// scheduler is the active heartbeat, nil while disabled.
	scheduler *updater.Scheduler

	// mu serializes Enable and Disable.
	mu sync.Mutex
}

// Options are the optional collaborators of a State. Leave a field nil to disable it.
type Options struct {
	// Locator annotates verbose request logs with the client country.
	Locator query.Locator

	// Recorder persists heartbeat submission outcomes.
	Recorder updater.Recorder

	// Prober attaches game server liveness to heartbeat submissions.
	Prober updater.Prober

	// Submitter overrides the HTTP submitter built from the updater timeout.
	Submitter updater.Submitter
}
