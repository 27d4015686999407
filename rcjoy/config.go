package rcjoy

import "fmt"

/*-------------------------------------------------------------------
 *
 * Name:	Configuration
 *
 * Purpose:	The persisted configuration mirrored in RAM, validated
 *		before use.
 *
 *--------------------------------------------------------------*/

// ConfigurationSchemaVersion is the compile-time schema tag a loaded
// Configuration's Version field must match.
const ConfigurationSchemaVersion uint8 = 1

const (
	MaxInputChannels  = SrxlMaxChannelCount // the widest decoder, 16
	MaxOutputChannels = SrxlMaxChannelCount

	MinSyncWidthUs = 500
	MaxSyncWidthUs = 30000

	MinChannelPulseWidthUs = 500
	MaxChannelPulseWidthUs = 2500

	MinChannelPulseWidthRangeUs = 10
)

// ConfigFlagInvertedSignal is bit 0 of Configuration.Flags: inverted
// input polarity on the PPM/PCM capture line.
const ConfigFlagInvertedSignal uint16 = 1 << 0

// Configuration is the EEPROM-backed configuration struct, with both a
// human-editable YAML form and a compact CBOR form for the EEPROM
// image (see hw/eepromfile and cmd/rcjoy-configtool).
type Configuration struct {
	Version uint8 `yaml:"version" cbor:"0,keyasint"`
	Flags   uint16 `yaml:"flags" cbor:"1,keyasint"`

	MinSyncPulseWidthUs       uint16 `yaml:"minSyncPulseWidthUs" cbor:"2,keyasint"`
	CenterChannelPulseWidthUs uint16 `yaml:"centerChannelPulseWidthUs" cbor:"3,keyasint"`
	ChannelPulseWidthRangeUs  uint16 `yaml:"channelPulseWidthRangeUs" cbor:"4,keyasint"`

	// Polarity is a bitmap, one bit per output channel: bit set
	// inverts that channel around the neutral midpoint.
	Polarity uint16 `yaml:"polarity" cbor:"5,keyasint"`

	// Mapping[c] is the input-channel index feeding output channel
	// c. Every entry must be < MaxInputChannels.
	Mapping [MaxOutputChannels]uint8 `yaml:"mapping" cbor:"6,keyasint"`
}

// DefaultConfiguration returns the factory-default configuration:
// identity channel mapping, no inversion, and a 1500us center with a
// 550us range.
func DefaultConfiguration() Configuration {
	var cfg Configuration
	cfg.Version = ConfigurationSchemaVersion
	cfg.Flags = 0
	cfg.MinSyncPulseWidthUs = PpmDefaultSyncPulseWidthUs
	cfg.CenterChannelPulseWidthUs = 1500
	cfg.ChannelPulseWidthRangeUs = 550
	cfg.Polarity = 0
	for i := range cfg.Mapping {
		cfg.Mapping[i] = uint8(i)
	}
	return cfg
}

// Validate reports the first reason a Configuration fails its range
// checks, or nil if it is valid. LoadOrDefault (and so
// Arbiter.SetConfiguration) falls back to DefaultConfiguration() on
// any error; cmd/rcjoy-configtool reports the error and exits instead.
func (c Configuration) Validate() error {
	if c.Version != ConfigurationSchemaVersion {
		return fmt.Errorf("rcjoy: configuration version %d != %d", c.Version, ConfigurationSchemaVersion)
	}

	if c.MinSyncPulseWidthUs < MinSyncWidthUs || c.MinSyncPulseWidthUs > MaxSyncWidthUs {
		return fmt.Errorf("rcjoy: min sync pulse width %dus out of range [%d,%d]",
			c.MinSyncPulseWidthUs, MinSyncWidthUs, MaxSyncWidthUs)
	}

	if c.CenterChannelPulseWidthUs < MinChannelPulseWidthUs || c.CenterChannelPulseWidthUs > MaxChannelPulseWidthUs {
		return fmt.Errorf("rcjoy: center channel pulse width %dus out of range [%d,%d]",
			c.CenterChannelPulseWidthUs, MinChannelPulseWidthUs, MaxChannelPulseWidthUs)
	}

	if c.ChannelPulseWidthRangeUs < MinChannelPulseWidthRangeUs || c.ChannelPulseWidthRangeUs > MaxChannelPulseWidthUs {
		return fmt.Errorf("rcjoy: channel pulse width range %dus out of range [%d,%d]",
			c.ChannelPulseWidthRangeUs, MinChannelPulseWidthRangeUs, MaxChannelPulseWidthUs)
	}

	for i, m := range c.Mapping {
		if m >= MaxInputChannels {
			return fmt.Errorf("rcjoy: mapping[%d] = %d >= max input channels %d", i, m, MaxInputChannels)
		}
	}

	return nil
}

// InvertedSignal reports whether ConfigFlagInvertedSignal is set.
func (c Configuration) InvertedSignal() bool {
	return c.Flags&ConfigFlagInvertedSignal != 0
}

// LoadOrDefault validates cfg and returns it unchanged if valid, or
// DefaultConfiguration() otherwise.
func LoadOrDefault(cfg Configuration) Configuration {
	if err := cfg.Validate(); err != nil {
		return DefaultConfiguration()
	}
	return cfg
}
