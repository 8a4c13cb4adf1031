package sensor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeReaderSequence(t *testing.T) {
	glitch := errors.New("sensor glitch")
	f := NewFakeReader([]Sample{
		{Up: true},
		{Up: false},
		{Err: glitch},
		{Up: true},
	})

	up, err := f.Read()
	require.NoError(t, err)
	assert.True(t, up)

	up, err = f.Read()
	require.NoError(t, err)
	assert.False(t, up)

	_, err = f.Read()
	assert.ErrorIs(t, err, glitch)

	// Last sample repeats once exhausted.
	for i := 0; i < 3; i++ {
		up, err = f.Read()
		require.NoError(t, err)
		assert.True(t, up)
	}
}

func TestFakeReaderReset(t *testing.T) {
	f := NewFakeReader([]Sample{{Up: true}, {Up: false}})

	f.Read()
	f.Read()
	require.NoError(t, f.Close())
	assert.True(t, f.Closed)

	f.Reset()
	assert.False(t, f.Closed)
	up, err := f.Read()
	require.NoError(t, err)
	assert.True(t, up)
}

func TestFakeReaderNoSamples(t *testing.T) {
	f := NewFakeReader(nil)
	_, err := f.Read()
	assert.Error(t, err)
}

func TestMQTTSourceRead(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	s := &MQTTSource{
		topic:  DefaultAlarmTopic,
		maxAge: time.Minute,
		now:    func() time.Time { return current },
	}

	// No message yet: unusable reading.
	_, err := s.Read()
	assert.Error(t, err)

	// Fresh message: value passes through.
	s.observe(true, base)
	up, err := s.Read()
	require.NoError(t, err)
	assert.True(t, up)

	s.observe(false, base.Add(10*time.Second))
	current = base.Add(15 * time.Second)
	up, err = s.Read()
	require.NoError(t, err)
	assert.False(t, up)

	// Stale message: unusable, not "down".
	current = base.Add(5 * time.Minute)
	_, err = s.Read()
	assert.Error(t, err)
}

func TestMQTTSourceNoMaxAge(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &MQTTSource{
		topic: DefaultAlarmTopic,
		now:   func() time.Time { return base.Add(24 * time.Hour) },
	}
	s.observe(true, base)

	// maxAge zero disables the staleness cutoff.
	up, err := s.Read()
	require.NoError(t, err)
	assert.True(t, up)
}
