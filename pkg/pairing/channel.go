package pairing

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lumina-home/provision-go/pkg/transport"
)

// Channel errors.
var (
	ErrChannelClosed     = errors.New("pairing channel closed")
	ErrNoCommandChar     = errors.New("device exposes no writable command characteristic")
	ErrAmbiguousChars    = errors.New("device exposes conflicting characteristics")
	ErrUnexpectedMessage = errors.New("unexpected pairing message")
)

// DeviceHandle opens the point-to-point pairing link to one controller. The
// platform's radio bridge provides implementations; tests and the simulator
// substitute TCP or in-memory pipes.
type DeviceHandle interface {
	// Open yields a byte stream to the device's pairing radio. The
	// caller owns the returned connection.
	Open(ctx context.Context) (net.Conn, error)
}

// HandleFunc adapts a plain dial function to a DeviceHandle.
type HandleFunc func(ctx context.Context) (net.Conn, error)

// Open implements DeviceHandle.
func (f HandleFunc) Open(ctx context.Context) (net.Conn, error) {
	return f(ctx)
}

// Config tunes a pairing channel.
type Config struct {
	// ResultGrace is how long SendCredentials waits for a result
	// notification after a confirmed write.
	ResultGrace time.Duration

	// ExchangeTimeout bounds each request/response exchange on the link.
	ExchangeTimeout time.Duration

	// MaxMessageSize caps frame payloads in both directions.
	MaxMessageSize uint32

	// Logger receives channel events. Defaults to a no-op logger.
	Logger *zap.Logger
}

// DefaultConfig returns the channel defaults.
func DefaultConfig() Config {
	return Config{
		ResultGrace:     5 * time.Second,
		ExchangeTimeout: 10 * time.Second,
		MaxMessageSize:  DefaultMaxMessageSize,
	}
}

// Channel is an established pairing link to one controller. Credential
// sends are serialized; Close releases the link.
type Channel struct {
	conn   net.Conn
	framer *Framer
	cfg    Config
	logger *zap.Logger

	commandChar Characteristic
	resultChar  *Characteristic // nil when the device exposes none

	mu        sync.Mutex
	closeOnce sync.Once
	closeCh   chan struct{}
}

var _ transport.Transport = (*Channel)(nil)

// Dial opens the pairing link and enumerates the device's characteristics.
// The device must expose exactly one writable command characteristic; a
// readable/notifying result characteristic is optional.
func Dial(ctx context.Context, handle DeviceHandle, cfg Config) (*Channel, error) {
	def := DefaultConfig()
	if cfg.ResultGrace <= 0 {
		cfg.ResultGrace = def.ResultGrace
	}
	if cfg.ExchangeTimeout <= 0 {
		cfg.ExchangeTimeout = def.ExchangeTimeout
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	conn, err := handle.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open pairing link: %w", err)
	}

	ch := &Channel{
		conn:    conn,
		framer:  NewFramerWithMaxSize(conn, cfg.MaxMessageSize),
		cfg:     cfg,
		logger:  cfg.Logger,
		closeCh: make(chan struct{}),
	}

	if err := ch.describe(ctx); err != nil {
		_ = ch.Close()
		return nil, err
	}

	ch.logger.Debug("pairing channel established",
		zap.String("command_characteristic", ch.commandChar.UUID),
		zap.Bool("has_result_characteristic", ch.resultChar != nil))

	return ch, nil
}

// describe runs the characteristic enumeration exchange and records the
// command and result characteristics.
func (ch *Channel) describe(ctx context.Context) error {
	if err := ch.writeMessage(&DescribeRequest{MsgType: MsgDescribeRequest}); err != nil {
		return fmt.Errorf("failed to send describe request: %w", err)
	}

	msg, err := ch.readMessage(ctx)
	if err != nil {
		return fmt.Errorf("failed to read describe response: %w", err)
	}

	resp, ok := msg.(*DescribeResponse)
	if !ok {
		if devErr, ok := msg.(*ChannelError); ok {
			return fmt.Errorf("device error: %s (code %d)", devErr.Message, devErr.Code)
		}
		return fmt.Errorf("%w: expected DescribeResponse, got %T", ErrUnexpectedMessage, msg)
	}

	var command, result *Characteristic
	for i := range resp.Characteristics {
		c := &resp.Characteristics[i]
		switch {
		case c.Writable():
			if command != nil {
				return fmt.Errorf("%w: multiple writable characteristics", ErrAmbiguousChars)
			}
			command = c
		case c.Reportable():
			if result != nil {
				return fmt.Errorf("%w: multiple result characteristics", ErrAmbiguousChars)
			}
			result = c
		}
	}

	if command == nil {
		return ErrNoCommandChar
	}

	ch.commandChar = *command
	if result != nil {
		r := *result
		ch.resultChar = &r
	}
	return nil
}

// Name identifies the channel in logs and session snapshots.
func (ch *Channel) Name() string {
	return "pairing"
}

// SendCredentials writes the credential payload to the command
// characteristic and, when the device exposes a result characteristic,
// waits up to the configured grace window for its verdict. A silent grace
// window is success: older firmware reboots into join without reporting.
func (ch *Channel) SendCredentials(ctx context.Context, creds transport.Credentials) transport.Result {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	select {
	case <-ch.closeCh:
		return transport.Failure(transport.ReasonUnreachable, ErrChannelClosed)
	default:
	}

	ch.logger.Debug("writing credentials",
		zap.String("characteristic", ch.commandChar.UUID),
		zap.String("network", creds.NetworkName()),
		zap.String("fingerprint", creds.Fingerprint()))

	req := &WriteRequest{
		MsgType:        MsgWriteRequest,
		Characteristic: ch.commandChar.UUID,
		Value:          EncodeCredentialPayload(creds),
	}
	if err := ch.writeMessage(req); err != nil {
		return transport.Failure(transport.ReasonUnreachable, err)
	}

	msg, err := ch.readMessage(ctx)
	if err != nil {
		return failureFromRead(err)
	}

	ack, ok := msg.(*WriteResponse)
	if !ok {
		if devErr, ok := msg.(*ChannelError); ok {
			return transport.Failure(transport.ReasonProtocol,
				fmt.Errorf("device error: %s (code %d)", devErr.Message, devErr.Code))
		}
		return transport.Failure(transport.ReasonProtocol,
			fmt.Errorf("%w: expected WriteResponse, got %T", ErrUnexpectedMessage, msg))
	}
	if ack.Status != WriteStatusOK {
		return transport.Failure(transport.ReasonProtocol,
			fmt.Errorf("write rejected with status %d", ack.Status))
	}

	if ch.resultChar == nil {
		ch.logger.Debug("no result characteristic, assuming delivered")
		return transport.Success()
	}
	return ch.awaitResult(ctx)
}

// awaitResult waits for the device's verdict on the result characteristic.
func (ch *Channel) awaitResult(ctx context.Context) transport.Result {
	graceCtx, cancel := context.WithTimeout(ctx, ch.cfg.ResultGrace)
	defer cancel()

	msg, err := ch.readMessage(graceCtx)
	if err != nil {
		if isTimeout(err) {
			if ctx.Err() != nil {
				return transport.Failure(transport.ReasonTimeout, ctx.Err())
			}
			// Grace window lapsed with a confirmed write behind it.
			ch.logger.Debug("result grace window lapsed, assuming delivered")
			return transport.Success()
		}
		return failureFromRead(err)
	}

	note, ok := msg.(*Notification)
	if !ok {
		return transport.Failure(transport.ReasonProtocol,
			fmt.Errorf("%w: expected Notification, got %T", ErrUnexpectedMessage, msg))
	}
	if note.Characteristic != ch.resultChar.UUID {
		return transport.Failure(transport.ReasonProtocol,
			fmt.Errorf("notification from unexpected characteristic %s", note.Characteristic))
	}

	verdict, err := ParseResultPayload(note.Value)
	if err != nil {
		return transport.Failure(transport.ReasonProtocol, err)
	}

	switch verdict.Status {
	case ResultAccepted:
		if verdict.Address != "" {
			ch.logger.Debug("device reported address", zap.String("address", verdict.Address))
			return transport.SuccessWithAddress(verdict.Address)
		}
		return transport.Success()
	case ResultRejected:
		return transport.Failure(transport.ReasonRejected, nil)
	case ResultBusy:
		return transport.Failure(transport.ReasonProtocol, errors.New("device reported busy"))
	default:
		return transport.Failure(transport.ReasonProtocol,
			fmt.Errorf("unknown result status %d", verdict.Status))
	}
}

// Close releases the pairing link. Close is idempotent.
func (ch *Channel) Close() error {
	var err error
	ch.closeOnce.Do(func() {
		close(ch.closeCh)
		err = ch.conn.Close()
	})
	return err
}

// writeMessage encodes and frames one protocol message.
func (ch *Channel) writeMessage(msg interface{}) error {
	data, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	return ch.framer.WriteFrame(data)
}

// readMessage reads one protocol message, honoring the context deadline and
// the channel's exchange timeout, whichever is sooner.
func (ch *Channel) readMessage(ctx context.Context) (interface{}, error) {
	deadline := time.Now().Add(ch.cfg.ExchangeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	ch.conn.SetReadDeadline(deadline)
	defer ch.conn.SetReadDeadline(time.Time{})

	frame, err := ch.framer.ReadFrame()
	if err != nil {
		return nil, err
	}
	return DecodeMessage(frame)
}

// failureFromRead classifies a read error into a transport failure.
func failureFromRead(err error) transport.Result {
	switch {
	case isTimeout(err):
		return transport.Failure(transport.ReasonTimeout, err)
	case errors.Is(err, ErrInvalidMessage),
		errors.Is(err, ErrMessageTooLarge),
		errors.Is(err, ErrMessageEmpty),
		errors.Is(err, ErrFrameTruncated):
		return transport.Failure(transport.ReasonProtocol, err)
	default:
		return transport.Failure(transport.ReasonUnreachable, err)
	}
}

// isTimeout reports whether err is a network timeout.
func isTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
