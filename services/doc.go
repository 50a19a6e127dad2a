// Package services wires the coordinator node together: YAML configuration,
// the signed HTTP gateway, audit persistence, and the background loops that
// drive oracle reply settlement.
package services
