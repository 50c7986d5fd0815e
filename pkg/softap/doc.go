// Package softap implements the fallback provisioning channel over the
// controller's own configuration access point.
//
// A factory-fresh controller raises an open access point with a fixed
// gateway address. Once the operator's machine has joined that network,
// this package delivers credentials through the device's local HTTP
// surface: a form POST to /settings/wifi, a mandatory read-back of
// /json/cfg to confirm the saved network name, and a reboot instruction
// via /json/state. The package does not manage Wi-Fi association; the
// caller is already on the device's network when it dials.
package softap
