package simulator

import (
	"errors"
	"net"

	"go.uber.org/zap"

	"github.com/lumina-home/provision-go/pkg/pairing"
)

// Characteristic UUIDs the simulated firmware exposes.
const (
	commandCharUUID = "6e400002-c1b4-4c6e-9ccd-6e7d5f2a7d01"
	resultCharUUID  = "6e400003-c1b4-4c6e-9ccd-6e7d5f2a7d01"
)

// acceptPairing serves pairing links until the listener closes (reboot or
// Stop). A real pairing radio is point to point; serving links one at a
// time mirrors that.
func (c *Controller) acceptPairing(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				c.logger.Debug("pairing accept failed", zap.Error(err))
			}
			return
		}
		c.servePairing(conn)
	}
}

// servePairing runs the describe/write exchange loop on one pairing link.
func (c *Controller) servePairing(conn net.Conn) {
	defer conn.Close()
	framer := pairing.NewFramer(conn)

	for {
		data, err := framer.ReadFrame()
		if err != nil {
			return
		}

		msg, err := pairing.DecodeMessage(data)
		if err != nil {
			c.writePairing(framer, &pairing.ChannelError{
				MsgType: pairing.MsgChannelError,
				Code:    1,
				Message: "unrecognized message",
			})
			continue
		}

		switch m := msg.(type) {
		case *pairing.DescribeRequest:
			c.writePairing(framer, c.describeResponse())

		case *pairing.WriteRequest:
			if done := c.handlePairingWrite(framer, m); done {
				return
			}

		default:
			c.writePairing(framer, &pairing.ChannelError{
				MsgType: pairing.MsgChannelError,
				Code:    2,
				Message: "unsupported operation",
			})
		}
	}
}

// describeResponse enumerates the firmware's characteristics: the writable
// command characteristic and, unless omitted, the notifying result one.
func (c *Controller) describeResponse() *pairing.DescribeResponse {
	chars := []pairing.Characteristic{
		{UUID: commandCharUUID, Properties: pairing.PropWrite},
	}
	if !c.cfg.OmitResultChar {
		chars = append(chars, pairing.Characteristic{
			UUID:       resultCharUUID,
			Properties: pairing.PropRead | pairing.PropNotify,
		})
	}
	return &pairing.DescribeResponse{
		MsgType:         pairing.MsgDescribeResponse,
		Characteristics: chars,
	}
}

// handlePairingWrite processes one command write. It returns true when the
// device accepted credentials and is going down for its reboot.
func (c *Controller) handlePairingWrite(framer *pairing.Framer, m *pairing.WriteRequest) bool {
	if m.Characteristic != commandCharUUID {
		c.writePairing(framer, &pairing.WriteResponse{
			MsgType: pairing.MsgWriteResponse,
			Status:  pairing.WriteStatusUnknownChar,
		})
		return false
	}

	creds, err := pairing.DecodeCredentialPayload(m.Value)
	if err != nil {
		c.writePairing(framer, &pairing.WriteResponse{
			MsgType: pairing.MsgWriteResponse,
			Status:  pairing.WriteStatusBadValue,
		})
		return false
	}

	c.writePairing(framer, &pairing.WriteResponse{
		MsgType: pairing.MsgWriteResponse,
		Status:  pairing.WriteStatusOK,
	})

	accepted := c.acceptCredentials(creds.NetworkName(), creds.Secret())

	if !c.cfg.OmitResultChar {
		status := pairing.ResultAccepted
		if !accepted {
			status = pairing.ResultRejected
		}
		c.writePairing(framer, &pairing.Notification{
			MsgType:        pairing.MsgNotification,
			Characteristic: resultCharUUID,
			Value:          pairing.EncodeResultPayload(status, nil),
		})
	}

	if accepted {
		c.reboot()
		return true
	}
	return false
}

// writePairing encodes and frames one outbound message, best effort.
func (c *Controller) writePairing(framer *pairing.Framer, msg interface{}) {
	data, err := pairing.EncodeMessage(msg)
	if err != nil {
		c.logger.Debug("failed to encode pairing message", zap.Error(err))
		return
	}
	if err := framer.WriteFrame(data); err != nil {
		c.logger.Debug("failed to write pairing frame", zap.Error(err))
	}
}
