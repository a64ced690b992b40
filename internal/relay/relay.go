// Package relay forwards "refresh data" signals to the external automation
// service. Each Trigger call issues exactly one request and is never retried.
package relay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Options struct {
	// AwaitResponse waits for the automation service's status code. When
	// false the call returns once the request has been written and the
	// response is discarded in the background.
	AwaitResponse bool
	// Method is POST (default) or GET.
	Method string
	Client *http.Client
}

// Ack confirms a trigger. StatusCode is 0 in fire-and-forget mode.
type Ack struct {
	TriggerID  string
	StatusCode int
	Awaited    bool
}

// Relay holds no mutable state; concurrent Trigger calls are independent.
type Relay struct {
	table  *Table
	opts   Options
	client *http.Client
}

func New(table *Table, opts Options) (*Relay, error) {
	opts.Method = strings.ToUpper(strings.TrimSpace(opts.Method))
	switch opts.Method {
	case "":
		opts.Method = http.MethodPost
	case http.MethodPost, http.MethodGet:
	default:
		return nil, fmt.Errorf("unsupported relay method %q", opts.Method)
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}

	return &Relay{table: table, opts: opts, client: client}, nil
}

// Definitions lists the configured triggers.
func (r *Relay) Definitions() []Definition {
	return r.table.Definitions()
}

// Trigger resolves id and calls its automation webhook once.
func (r *Relay) Trigger(ctx context.Context, id string) (Ack, error) {
	def, ok := r.table.Lookup(id)
	if !ok || !def.Configured() {
		log.Warn().Str("trigger", id).Msg("Trigger requested without a configured target")
		return Ack{}, &Error{Kind: ErrConfigMissing, TriggerID: id}
	}

	if r.opts.AwaitResponse {
		return r.send(ctx, def)
	}
	return r.fire(ctx, def)
}

func (r *Relay) newRequest(ctx context.Context, def Definition) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, r.opts.Method, def.URL, nil)
	if err != nil {
		return nil, &Error{Kind: ErrTransport, TriggerID: def.ID, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if r.opts.Method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (r *Relay) send(ctx context.Context, def Definition) (Ack, error) {
	req, err := r.newRequest(ctx, def)
	if err != nil {
		return Ack{}, err
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("trigger", def.ID).Msg("Trigger request failed")
		return Ack{}, &Error{Kind: ErrTransport, TriggerID: def.ID, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	log.Debug().
		Str("trigger", def.ID).
		Int("status_code", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Received automation response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn().
			Str("trigger", def.ID).
			Int("status_code", resp.StatusCode).
			Msg("Automation service rejected trigger")
		return Ack{}, &Error{Kind: ErrRemoteRejected, TriggerID: def.ID, StatusCode: resp.StatusCode}
	}

	log.Info().Str("trigger", def.ID).Int("status_code", resp.StatusCode).Msg("Trigger accepted")
	return Ack{TriggerID: def.ID, StatusCode: resp.StatusCode, Awaited: true}, nil
}

// fire sends the request detached from ctx so it outlives the caller, and
// returns as soon as the request is on the wire.
func (r *Relay) fire(ctx context.Context, def Definition) (Ack, error) {
	sent := make(chan error, 1)
	report := func(err error) {
		select {
		case sent <- err:
		default:
		}
	}

	trace := &httptrace.ClientTrace{
		WroteRequest: func(info httptrace.WroteRequestInfo) { report(info.Err) },
	}
	// The request outlives the caller once written. Until then the caller's
	// cancellation aborts it, so a reported failure means nothing was sent.
	detached, cancel := context.WithCancel(context.WithoutCancel(ctx))
	req, err := r.newRequest(httptrace.WithClientTrace(detached, trace), def)
	if err != nil {
		cancel()
		return Ack{}, err
	}

	go func() {
		defer cancel()
		resp, err := r.client.Do(req)
		if err != nil {
			report(err)
			log.Debug().Err(err).Str("trigger", def.ID).Msg("Fire-and-forget trigger failed")
			return
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		log.Debug().
			Str("trigger", def.ID).
			Int("status_code", resp.StatusCode).
			Msg("Fire-and-forget trigger finished")
	}()

	select {
	case err := <-sent:
		if err != nil {
			log.Error().Err(err).Str("trigger", def.ID).Msg("Trigger request failed")
			return Ack{}, &Error{Kind: ErrTransport, TriggerID: def.ID, Err: err}
		}
	case <-ctx.Done():
		cancel()
		// The write may have completed before the abort landed.
		if err := <-sent; err != nil {
			log.Warn().Err(ctx.Err()).Str("trigger", def.ID).Msg("Trigger aborted before it was sent")
			return Ack{}, &Error{Kind: ErrTransport, TriggerID: def.ID, Err: ctx.Err()}
		}
	}

	log.Info().Str("trigger", def.ID).Msg("Update signal sent")
	return Ack{TriggerID: def.ID}, nil
}
