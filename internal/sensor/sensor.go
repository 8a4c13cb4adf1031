// Package sensor provides raw power readings with hardware abstraction.
// The GPIO implementation senses mains presence through an opto-coupler on a
// Linux GPIO character device; the MQTT implementation follows a UPS power
// alarm topic. The fake implementation allows testing without hardware.
package sensor

// Reader samples the raw power status on demand.
type Reader interface {
	// Read returns whether mains power is currently present.
	// An error means the reading is unusable (treated as UNKNOWN upstream),
	// never that power is down.
	Read() (bool, error)

	// Close releases sensor resources.
	Close() error
}

// DefaultPin is the BCM pin number for the mains-sense opto-coupler input.
const DefaultPin = 17
