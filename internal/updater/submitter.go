package updater

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/woozymasta/minequery/internal/game"
	"github.com/woozymasta/minequery/internal/models"
	"github.com/woozymasta/minequery/internal/vars"
)

// Directory is one external server list receiving heartbeats.
type Directory struct {
	Name        string
	URL         string
	Key         string
	MinInterval time.Duration
}

// SubmissionError reports a directory that rejected or never received a submission.
type SubmissionError struct {
	Err     error
	Service string
	Status  int
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submission to %s failed: %v", e.Service, e.Err)
	}

	return fmt.Sprintf("submission to %s rejected with status %d", e.Service, e.Status)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Submitter delivers one form to one directory and returns the response status.
type Submitter interface {
	Submit(ctx context.Context, dir Directory, form url.Values) (int, error)
}

// Form builds the submission body for a directory.
// probe is nil when the game server is not probed.
func Form(dir Directory, serverIP string, snap models.Snapshot, probe *game.Status) url.Values {
	form := url.Values{}
	form.Set("key", dir.Key)
	form.Set("server_name", snap.ServerLabel)
	if serverIP != "" {
		form.Set("server_ip", serverIP)
	}
	form.Set("port", strconv.Itoa(snap.ListenPort))
	form.Set("player_count", strconv.Itoa(snap.PlayerCount))
	form.Set("player_list", strings.Join(snap.PlayerNames, ","))

	if probe != nil {
		form.Set("online", strconv.FormatBool(probe.Online))
		form.Set("max_players", strconv.Itoa(probe.MaxPlayers))
	}

	return form
}

// HTTPSubmitter POSTs url-encoded forms.
type HTTPSubmitter struct {
	client *http.Client
}

// NewHTTPSubmitter returns a submitter whose requests give up after timeout.
func NewHTTPSubmitter(timeout time.Duration) *HTTPSubmitter {
	return &HTTPSubmitter{client: &http.Client{Timeout: timeout}}
}

// Submit sends the form; any non-2xx answer is a SubmissionError.
func (h *HTTPSubmitter) Submit(ctx context.Context, dir Directory, form url.Values) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dir.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, &SubmissionError{Service: dir.Name, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", vars.UserAgent())

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, &SubmissionError{Service: dir.Name, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, &SubmissionError{Service: dir.Name, Status: resp.StatusCode}
	}

	return resp.StatusCode, nil
}
