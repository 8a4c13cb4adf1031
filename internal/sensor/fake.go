package sensor

import "errors"

// FakeReader is a test double that returns scripted power readings.
type FakeReader struct {
	// Samples contains scripted readings. Each call to Read() consumes the
	// next sample; the last sample repeats once exhausted.
	Samples []Sample

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool
}

// Sample represents a single power reading. Err, if set, is returned instead
// of the value (simulates a sensor glitch).
type Sample struct {
	Up  bool
	Err error
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Sample) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
func (f *FakeReader) Read() (bool, error) {
	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	if sample.Err != nil {
		return false, sample.Err
	}
	return sample.Up, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Closed = false
}
