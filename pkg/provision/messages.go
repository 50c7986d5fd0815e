package provision

import "github.com/lumina-home/provision-go/pkg/transport"

// Operator-facing messages. Every non-terminal failure tells the operator
// what to check or do next; raw transport errors stay in LastErr and logs.
const (
	msgScanning = "Looking for the controller's setup channel."

	msgEnterCredentials = "Connected. Enter your home network's name and password."

	msgSending = "Sending your network details to the controller."

	msgAwaitingReboot = "Details delivered. The controller is restarting and joining your network."

	msgDiscovering = "Searching your network for the controller."

	msgVerifying = "Checking that the found address is your controller."

	msgManualFallback = "The controller did not appear on your network. " +
		"You can enter its address manually (check your router's client list), or try again."

	msgManualVerifyRetry = "That address is not answering yet. The controller may still be starting up; retrying."

	msgSucceeded = "Controller set up and verified on your network."

	msgForced = "Controller saved without verification. It will show as unverified until it is reached."

	msgCancelled = "Setup cancelled. Nothing was saved."

	msgFailedCredentials = "The controller kept refusing the network details. " +
		"Double-check the network name and password, then start setup again."

	msgFailedManualVerify = "The controller never answered at the address you entered. " +
		"Confirm the address and that the controller has power, then start setup again."

	msgFailedConnection = "Could not talk to the controller's setup channel. " +
		"Make sure the controller is in setup mode and nearby, then start setup again."

	msgPersistFailed = "The controller is set up, but saving its record failed. Retry saving."
)

// resendMessage maps a delivery failure onto guidance for the next
// submission while the session stays in StateConnected.
func resendMessage(reason transport.Reason) string {
	switch reason {
	case transport.ReasonRejected:
		return "The controller refused those network details. " +
			"Check the password (and the network name spelling) and try again."
	case transport.ReasonTimeout:
		return "The controller did not answer in time. It may be busy starting up; try sending again."
	case transport.ReasonUnreachable:
		return "Lost contact with the controller while sending. " +
			"Stay close to it and try sending again."
	default:
		return "Sending the network details failed. Try again."
	}
}
