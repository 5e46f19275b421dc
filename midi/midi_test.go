package midi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keystage/config"
)

func TestRawMessageBytes(t *testing.T) {
	m := RawMessage{Status: 0x90, Data1: 60, Data2: 100}
	assert.Equal(t, []byte{0x90, 60, 100}, m.Bytes())
}

func TestManagerStartsScanning(t *testing.T) {
	dm := NewDeviceManager(nil)
	assert.Equal(t, "scanning", dm.Status())
}

func TestAllowPortWithoutConfig(t *testing.T) {
	dm := NewDeviceManager(nil)

	allow, added := dm.allowPort("Some Piano MIDI 1")
	assert.True(t, allow)
	assert.False(t, added)
}

func TestAllowPortHonorsPreferences(t *testing.T) {
	cfg := &config.Config{
		Inputs: []config.InputConfig{
			{PortName: "Disabled Pad", AutoConnect: false},
			{PortName: "Stage Piano", AutoConnect: true},
		},
	}
	dm := NewDeviceManager(cfg)

	allow, added := dm.allowPort("Disabled Pad")
	assert.False(t, allow)
	assert.False(t, added)

	allow, added = dm.allowPort("Stage Piano")
	assert.True(t, allow)
	assert.False(t, added)
}

func TestAllowPortRecordsNewPorts(t *testing.T) {
	cfg := &config.Config{}
	dm := NewDeviceManager(cfg)

	allow, added := dm.allowPort("Fresh Keys")
	assert.True(t, allow)
	assert.True(t, added)

	pref := cfg.FindInput("Fresh Keys")
	require.NotNil(t, pref)
	assert.True(t, pref.AutoConnect)

	// A second scan of the same port must not mark the config dirty again.
	allow, added = dm.allowPort("Fresh Keys")
	assert.True(t, allow)
	assert.False(t, added)
}
