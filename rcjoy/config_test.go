package rcjoy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigurationIsValid(t *testing.T) {
	cfg := DefaultConfiguration()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.InvertedSignal())
	for i, m := range cfg.Mapping {
		assert.Equal(t, uint8(i), m)
	}
}

func TestValidateRejectsBadVersion(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.Version = ConfigurationSchemaVersion + 1
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangeSyncWidth(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.MinSyncPulseWidthUs = MinSyncWidthUs - 1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfiguration()
	cfg.MinSyncPulseWidthUs = MaxSyncWidthUs + 1
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangeMapping(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.Mapping[0] = MaxInputChannels
	assert.Error(t, cfg.Validate())
}

func TestLoadOrDefaultFallsBackOnInvalidConfiguration(t *testing.T) {
	var broken Configuration // zero value fails Version check
	got := LoadOrDefault(broken)
	assert.Equal(t, DefaultConfiguration(), got)
}

func TestLoadOrDefaultPassesThroughValidConfiguration(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.CenterChannelPulseWidthUs = 1520
	got := LoadOrDefault(cfg)
	assert.Equal(t, cfg, got)
}

func TestInvertedSignalFlag(t *testing.T) {
	cfg := DefaultConfiguration()
	assert.False(t, cfg.InvertedSignal())
	cfg.Flags |= ConfigFlagInvertedSignal
	assert.True(t, cfg.InvertedSignal())
}

func TestMemoryEepromStoreStartsEmpty(t *testing.T) {
	store := NewMemoryEepromStore()
	_, err := store.Load()
	assert.Error(t, err)

	cfg := DefaultConfiguration()
	require.NoError(t, store.Save(cfg))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
