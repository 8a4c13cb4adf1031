//go:build linux

package sensor

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOReader senses mains presence from a single opto-coupler input using the
// Linux GPIO character device.
type GPIOReader struct {
	chip   *gpiocdev.Chip
	line   *gpiocdev.Line
	invert bool
}

// NewGPIOReader opens the given BCM pin as an input. With invert false, a raw
// high level means mains present; invert flips that for active-low modules.
func NewGPIOReader(pin int, invert bool) (*GPIOReader, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	// Pull-down matches Pi boot defaults so external opto-coupler modules
	// behave consistently across restarts.
	line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request mains-sense pin %d: %w", pin, err)
	}

	return &GPIOReader{chip: chip, line: line, invert: invert}, nil
}

// Read returns whether mains power is present.
func (r *GPIOReader) Read() (bool, error) {
	raw, err := r.line.Value()
	if err != nil {
		return false, fmt.Errorf("read mains-sense pin: %w", err)
	}
	up := raw != 0
	if r.invert {
		up = !up
	}
	return up, nil
}

// Close reconfigures the pin to boot defaults (input, pull-down) and releases
// GPIO resources.
func (r *GPIOReader) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
