// Package interactive provides the interactive command-line interface
// for the Lumina provisioner.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/lumina-home/provision-go/pkg/provision"
	"github.com/lumina-home/provision-go/pkg/registry"
	"github.com/lumina-home/provision-go/pkg/transport"
)

// Provisioner handles interactive mode for lumina-provision.
type Provisioner struct {
	base  provision.Config
	store registry.Store
	rl    *readline.Instance

	session     *provision.Session
	watchCancel context.CancelFunc
}

// New creates a new interactive provisioner handler. base carries the wired
// session collaborators; each `provision` command clones it into a fresh
// session.
func New(base provision.Config, store registry.Store) (*Provisioner, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "lumina> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Provisioner{
		base:  base,
		store: store,
		rl:    rl,
	}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
func (p *Provisioner) Stdout() io.Writer {
	return p.rl.Stdout()
}

// Run starts the interactive command loop.
func (p *Provisioner) Run(ctx context.Context, cancel context.CancelFunc) {
	defer p.rl.Close()

	p.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := p.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(p.rl.Stdout(), "Exiting...")
			p.cancelSession()
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			p.printHelp()

		case "provision", "p":
			p.cmdProvision(ctx, args)

		case "discover", "d":
			p.cmdDiscover(ctx)

		case "verify", "v":
			p.cmdVerify(ctx, args)

		case "manual", "m":
			p.cmdManual(args)

		case "force":
			p.cmdForce(args)

		case "retry":
			p.cmdRetry(ctx)

		case "cancel":
			p.cmdCancel()

		case "status", "s":
			p.cmdStatus()

		case "records", "ls":
			p.cmdRecords(ctx)

		case "quit", "exit", "q":
			fmt.Fprintln(p.rl.Stdout(), "Exiting...")
			p.cancelSession()
			cancel()
			return

		default:
			fmt.Fprintf(p.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (p *Provisioner) printHelp() {
	fmt.Fprintln(p.rl.Stdout(), `
Lumina Provisioner Commands:
  Provisioning:
    provision <network> <secret> - Start a provisioning session
    manual <address>             - Hand the session a known device address
    force <address>              - Record an address without verification
    retry                        - Retry a failed registry write
    cancel                       - Cancel the running session
    status                       - Show session status

  Inspection:
    discover                     - Run one discovery pass
    verify <address>             - Probe an address for a controller
    records                      - List registered controllers

  General:
    help                         - Show this help
    quit                         - Exit`)
}

// cmdProvision starts a session and submits the given credentials once the
// credential channel is up.
func (p *Provisioner) cmdProvision(ctx context.Context, args []string) {
	out := p.rl.Stdout()
	if len(args) != 2 {
		fmt.Fprintln(out, "Usage: provision <network> <secret>")
		return
	}
	if p.session != nil && !p.session.Snapshot().State.Terminal() {
		fmt.Fprintln(out, "A session is already running; 'cancel' it first")
		return
	}

	creds, err := transport.NewCredentials(args[0], args[1])
	if err != nil {
		fmt.Fprintf(out, "Invalid credentials: %v\n", err)
		return
	}

	session, err := provision.New(p.base)
	if err != nil {
		fmt.Fprintf(out, "Failed to create session: %v\n", err)
		return
	}
	snaps := session.Snapshots()

	watchCtx, watchCancel := context.WithCancel(ctx)
	if err := session.Start(watchCtx); err != nil {
		watchCancel()
		fmt.Fprintf(out, "Failed to start session: %v\n", err)
		return
	}

	p.session = session
	p.watchCancel = watchCancel

	go p.watch(session, snaps, creds)
	fmt.Fprintf(out, "Session %s started\n", session.ID())
}

// watch follows one session's snapshots, submitting the credentials when the
// channel comes up and narrating every transition.
func (p *Provisioner) watch(session *provision.Session, snaps <-chan provision.Snapshot, creds transport.Credentials) {
	out := p.rl.Stdout()
	submitted := false

	for snap := range snaps {
		if snap.Message != "" {
			fmt.Fprintf(out, "[%s] %s\n", snap.State, snap.Message)
		} else {
			fmt.Fprintf(out, "[%s]\n", snap.State)
		}

		if snap.State == provision.StateConnected && !submitted {
			submitted = true
			if err := session.SubmitCredentials(creds); err != nil {
				fmt.Fprintf(out, "Failed to submit credentials: %v\n", err)
			}
		}
	}

	final := session.Snapshot()
	switch final.State {
	case provision.StateSucceeded:
		fmt.Fprintf(out, "Provisioned %s at %s\n", final.DeviceID, final.Address)
	case provision.StateCancelled:
		fmt.Fprintln(out, "Session cancelled")
	default:
		if final.LastErr != nil {
			fmt.Fprintf(out, "Session failed: %v\n", final.LastErr)
		}
	}
}

// cmdDiscover runs one bounded discovery pass outside any session.
func (p *Provisioner) cmdDiscover(ctx context.Context) {
	out := p.rl.Stdout()
	fmt.Fprintln(out, "Discovering controllers...")

	findCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	candidates, err := p.base.Finder.Find(findCtx)
	if err != nil {
		fmt.Fprintf(out, "Discovery error: %v\n", err)
		return
	}

	count := 0
	for cand := range candidates {
		count++
		name := cand.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(out, "  %d. %s at %s (via %s)\n", count, name, cand.Address, cand.Source)
	}
	if count == 0 {
		fmt.Fprintln(out, "No controllers found")
	}
}

// cmdVerify probes one address outside any session.
func (p *Provisioner) cmdVerify(ctx context.Context, args []string) {
	out := p.rl.Stdout()
	if len(args) != 1 {
		fmt.Fprintln(out, "Usage: verify <address>")
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	id, err := p.base.Prober.Probe(probeCtx, args[0])
	if err != nil {
		fmt.Fprintf(out, "Probe failed: %v\n", err)
		return
	}
	fmt.Fprintf(out, "Controller %q\n", id.Name)
	fmt.Fprintf(out, "  Device ID: %s\n", id.DeviceID)
	fmt.Fprintf(out, "  Firmware:  %s\n", id.Firmware)
	fmt.Fprintf(out, "  LEDs:      %d\n", id.LEDCount)
}

func (p *Provisioner) cmdManual(args []string) {
	out := p.rl.Stdout()
	if len(args) != 1 {
		fmt.Fprintln(out, "Usage: manual <address>")
		return
	}
	if p.session == nil {
		fmt.Fprintln(out, "No session running")
		return
	}
	if err := p.session.SubmitManualAddress(args[0]); err != nil {
		fmt.Fprintf(out, "Manual address not accepted: %v\n", err)
	}
}

func (p *Provisioner) cmdForce(args []string) {
	out := p.rl.Stdout()
	if len(args) != 1 {
		fmt.Fprintln(out, "Usage: force <address>")
		return
	}
	if p.session == nil {
		fmt.Fprintln(out, "No session running")
		return
	}
	if err := p.session.ForceAccept(args[0]); err != nil {
		fmt.Fprintf(out, "Force accept not possible: %v\n", err)
		return
	}
	fmt.Fprintln(out, "Recording address without verification; the record stays marked unverified")
}

func (p *Provisioner) cmdRetry(ctx context.Context) {
	out := p.rl.Stdout()
	if p.session == nil {
		fmt.Fprintln(out, "No session running")
		return
	}
	retryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := p.session.RetryPersist(retryCtx); err != nil {
		fmt.Fprintf(out, "Retry failed: %v\n", err)
	}
}

func (p *Provisioner) cmdCancel() {
	if p.session == nil {
		fmt.Fprintln(p.rl.Stdout(), "No session running")
		return
	}
	p.cancelSession()
}

func (p *Provisioner) cmdStatus() {
	out := p.rl.Stdout()
	if p.session == nil {
		fmt.Fprintln(out, "No session")
		return
	}

	snap := p.session.Snapshot()
	fmt.Fprintf(out, "Session %s\n", snap.SessionID)
	fmt.Fprintf(out, "  State:    %s\n", snap.State)
	if snap.Transport != "" {
		fmt.Fprintf(out, "  Channel:  %s\n", snap.Transport)
	}
	if snap.NetworkName != "" {
		fmt.Fprintf(out, "  Network:  %s (attempt %d)\n", snap.NetworkName, snap.CredentialAttempt)
	}
	if snap.Address != "" {
		fmt.Fprintf(out, "  Address:  %s\n", snap.Address)
	}
	if snap.DeviceID != "" {
		fmt.Fprintf(out, "  Device:   %s\n", snap.DeviceID)
	}
	if snap.Message != "" {
		fmt.Fprintf(out, "  Next:     %s\n", snap.Message)
	}
	if snap.LastErr != nil {
		fmt.Fprintf(out, "  Last err: %v\n", snap.LastErr)
	}
}

// cmdRecords lists the registry contents.
func (p *Provisioner) cmdRecords(ctx context.Context) {
	out := p.rl.Stdout()

	listCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	stream, err := p.store.Stream(listCtx, p.base.OwnerID)
	if err != nil {
		fmt.Fprintf(out, "Failed to read registry: %v\n", err)
		return
	}

	count := 0
	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case rec, ok := <-stream:
			if !ok {
				printRecordCount(out, count)
				return
			}
			count++
			printRecord(out, count, rec)
		case <-deadline:
			// The stream stays open for live updates; the initial batch
			// has arrived by now.
			printRecordCount(out, count)
			return
		}
	}
}

func printRecord(out io.Writer, idx int, rec registry.Record) {
	verified := "verified"
	if !rec.Configured {
		verified = "unverified"
	}
	name := rec.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(out, "  %d. %s  %s at %s [%s]\n", idx, rec.DeviceID, name, rec.Address, verified)
}

func printRecordCount(out io.Writer, count int) {
	if count == 0 {
		fmt.Fprintln(out, "No controllers registered")
	}
}

// cancelSession cancels the running session and its watcher.
func (p *Provisioner) cancelSession() {
	if p.session != nil {
		p.session.Cancel()
	}
	if p.watchCancel != nil {
		p.watchCancel()
	}
}
