// Package simulator runs an in-process Lumina controller: a pairing-radio
// listener speaking the framed setup protocol, the device's soft-AP HTTP
// surface, and a scripted reboot that "joins" the home network by starting
// the station HTTP surface. It exists so the provisioning pipeline can be
// exercised end to end on one machine, with knobs for the failure modes a
// real factory-fresh device exhibits.
package simulator
