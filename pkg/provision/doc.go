// Package provision sequences one controller onboarding attempt end to end:
// deliver network credentials over a pairing or soft-AP channel, wait out the
// device's reboot, discover it on the home network, verify the candidate
// address really is the controller, and persist the verified record.
//
// The Session state machine owns the whole attempt. Transports, discovery and
// verification never retry on their own; every retry and fallback decision is
// made here, with bounded counters per failure domain.
package provision
