package pairing

import (
	"errors"
	"fmt"
	"net"

	"github.com/fxamacker/cbor/v2"

	"github.com/lumina-home/provision-go/pkg/transport"
)

// Pairing message types.
const (
	// MsgDescribeRequest asks the device to enumerate its characteristics.
	MsgDescribeRequest uint8 = 1

	// MsgDescribeResponse lists the device's characteristics.
	MsgDescribeResponse uint8 = 2

	// MsgWriteRequest writes a value to one characteristic.
	MsgWriteRequest uint8 = 3

	// MsgWriteResponse acknowledges a write.
	MsgWriteResponse uint8 = 4

	// MsgNotification carries a value pushed by the device.
	MsgNotification uint8 = 5

	// MsgChannelError reports a device-side error.
	MsgChannelError uint8 = 255
)

// Characteristic property bits.
const (
	PropWrite uint8 = 1 << iota
	PropRead
	PropNotify
)

// Write acknowledgement statuses.
const (
	WriteStatusOK          uint8 = 0
	WriteStatusUnknownChar uint8 = 1
	WriteStatusBadValue    uint8 = 2
)

// Result notification statuses.
const (
	ResultAccepted uint8 = 0
	ResultRejected uint8 = 1
	ResultBusy     uint8 = 2
)

// opConfigureNetwork starts every credential payload.
const opConfigureNetwork uint8 = 0x01

// Protocol errors.
var (
	ErrInvalidMessage = errors.New("invalid pairing message")
	ErrInvalidPayload = errors.New("invalid credential payload")
	ErrInvalidResult  = errors.New("invalid result payload")
)

// Characteristic describes one addressable value on the device.
// CBOR: { 1: uuid, 2: properties }
type Characteristic struct {
	UUID       string `cbor:"1,keyasint"`
	Properties uint8  `cbor:"2,keyasint"`
}

// Writable reports whether the characteristic accepts writes.
func (c Characteristic) Writable() bool {
	return c.Properties&PropWrite != 0
}

// Reportable reports whether the characteristic can be read or notifies.
func (c Characteristic) Reportable() bool {
	return c.Properties&(PropRead|PropNotify) != 0
}

// DescribeRequest asks the device for its characteristic set.
// CBOR: { 1: msgType }
type DescribeRequest struct {
	MsgType uint8 `cbor:"1,keyasint"`
}

// DescribeResponse enumerates the device's characteristics.
// CBOR: { 1: msgType, 2: characteristics }
type DescribeResponse struct {
	MsgType         uint8            `cbor:"1,keyasint"`
	Characteristics []Characteristic `cbor:"2,keyasint"`
}

// WriteRequest writes a value to one characteristic.
// CBOR: { 1: msgType, 2: characteristic, 3: value }
type WriteRequest struct {
	MsgType        uint8  `cbor:"1,keyasint"`
	Characteristic string `cbor:"2,keyasint"`
	Value          []byte `cbor:"3,keyasint"`
}

// WriteResponse acknowledges a write.
// CBOR: { 1: msgType, 2: status }
type WriteResponse struct {
	MsgType uint8 `cbor:"1,keyasint"`
	Status  uint8 `cbor:"2,keyasint"`
}

// Notification carries a value pushed by the device.
// CBOR: { 1: msgType, 2: characteristic, 3: value }
type Notification struct {
	MsgType        uint8  `cbor:"1,keyasint"`
	Characteristic string `cbor:"2,keyasint"`
	Value          []byte `cbor:"3,keyasint"`
}

// ChannelError reports a device-side error.
// CBOR: { 1: msgType, 2: code, 3: message }
type ChannelError struct {
	MsgType uint8  `cbor:"1,keyasint"`
	Code    uint8  `cbor:"2,keyasint"`
	Message string `cbor:"3,keyasint,omitempty"`
}

// EncodeMessage encodes a pairing message to CBOR bytes.
func EncodeMessage(msg interface{}) ([]byte, error) {
	return cbor.Marshal(msg)
}

// DecodeMessage decodes CBOR bytes to the matching pairing message type.
func DecodeMessage(data []byte) (interface{}, error) {
	var header struct {
		MsgType uint8 `cbor:"1,keyasint"`
	}
	if err := cbor.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	switch header.MsgType {
	case MsgDescribeRequest:
		var msg DescribeRequest
		if err := cbor.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return &msg, nil

	case MsgDescribeResponse:
		var msg DescribeResponse
		if err := cbor.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return &msg, nil

	case MsgWriteRequest:
		var msg WriteRequest
		if err := cbor.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return &msg, nil

	case MsgWriteResponse:
		var msg WriteResponse
		if err := cbor.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return &msg, nil

	case MsgNotification:
		var msg Notification
		if err := cbor.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return &msg, nil

	case MsgChannelError:
		var msg ChannelError
		if err := cbor.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("%w: unknown message type %d", ErrInvalidMessage, header.MsgType)
	}
}

// EncodeCredentialPayload renders the firmware's configure-network payload:
// opcode 0x01, u8-length-prefixed network name, u8-length-prefixed secret,
// both UTF-8.
func EncodeCredentialPayload(creds transport.Credentials) []byte {
	name := creds.NetworkName()
	secret := creds.Secret()

	buf := make([]byte, 0, 3+len(name)+len(secret))
	buf = append(buf, opConfigureNetwork)
	buf = append(buf, uint8(len(name)))
	buf = append(buf, name...)
	buf = append(buf, uint8(len(secret)))
	buf = append(buf, secret...)
	return buf
}

// DecodeCredentialPayload parses a configure-network payload. The simulator
// uses this to mirror the firmware's parser.
func DecodeCredentialPayload(data []byte) (transport.Credentials, error) {
	if len(data) < 3 {
		return transport.Credentials{}, fmt.Errorf("%w: %d bytes", ErrInvalidPayload, len(data))
	}
	if data[0] != opConfigureNetwork {
		return transport.Credentials{}, fmt.Errorf("%w: unknown opcode %#02x", ErrInvalidPayload, data[0])
	}

	rest := data[1:]
	nameLen := int(rest[0])
	if len(rest) < 1+nameLen+1 {
		return transport.Credentials{}, fmt.Errorf("%w: truncated network name", ErrInvalidPayload)
	}
	name := string(rest[1 : 1+nameLen])

	rest = rest[1+nameLen:]
	secretLen := int(rest[0])
	if len(rest) < 1+secretLen {
		return transport.Credentials{}, fmt.Errorf("%w: truncated secret", ErrInvalidPayload)
	}
	if len(rest) > 1+secretLen {
		return transport.Credentials{}, fmt.Errorf("%w: %d trailing bytes", ErrInvalidPayload, len(rest)-1-secretLen)
	}
	secret := string(rest[1 : 1+secretLen])

	return transport.NewCredentials(name, secret)
}

// ResultVerdict is a parsed result notification.
type ResultVerdict struct {
	// Status is one of the Result* statuses.
	Status uint8

	// Address is the device's textual IPv4 address when it reported an
	// existing lease, "" otherwise.
	Address string
}

// ParseResultPayload parses a result characteristic value: one status byte,
// optionally followed by four bytes of IPv4 address.
func ParseResultPayload(data []byte) (ResultVerdict, error) {
	switch len(data) {
	case 0:
		return ResultVerdict{}, fmt.Errorf("%w: empty", ErrInvalidResult)
	case 1:
		return ResultVerdict{Status: data[0]}, nil
	case 5:
		addr := net.IPv4(data[1], data[2], data[3], data[4]).String()
		return ResultVerdict{Status: data[0], Address: addr}, nil
	default:
		return ResultVerdict{}, fmt.Errorf("%w: %d bytes", ErrInvalidResult, len(data))
	}
}

// EncodeResultPayload renders a result characteristic value. The simulator
// uses this to mirror the firmware.
func EncodeResultPayload(status uint8, addr net.IP) []byte {
	if v4 := addr.To4(); v4 != nil {
		return append([]byte{status}, v4...)
	}
	return []byte{status}
}
