// Package transport defines the credential delivery contract shared by the
// concrete provisioning channels.
//
// A Transport delivers network credentials to a factory-fresh controller and
// reports a typed Result: success with a device address, success without one,
// or failure with a Reason the orchestrator can translate into retry,
// fallback, or operator guidance. The pairing and softap packages provide the
// two concrete channels.
package transport
