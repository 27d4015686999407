package main

/*------------------------------------------------------------------
 *
 * Purpose:	Load and validate the persisted rcjoy Configuration
 *		from human-editable YAML, an existing CBOR EEPROM image,
 *		or the factory defaults, and save it as a CBOR EEPROM
 *		image. The tool does not write YAML.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/rc-hacks/rcjoybridge/hw/eepromfile"
	"github.com/rc-hacks/rcjoybridge/rcjoy"
)

func main() {
	yamlPath := pflag.StringP("yaml-file", "y", "", "Human-editable YAML configuration file")
	eepromPath := pflag.StringP("eeprom-file", "e", "", "On-disk CBOR EEPROM image")
	loadDefaults := pflag.Bool("load-defaults", false, "Write the factory-default configuration instead of reading --yaml-file")
	validate := pflag.Bool("validate", false, "Only validate --yaml-file or --eeprom-file; do not write anything")
	help := pflag.Bool("help", false, "Display help text")
	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "rcjoy-configtool - manage the persisted rcjoy configuration")
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if *help {
		pflag.Usage()
		return
	}

	logger := log.New(os.Stderr)

	cfg, err := loadConfiguration(*yamlPath, *eepromPath, *loadDefaults, logger)
	if err != nil {
		logger.Error("could not load configuration", "err", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("configuration is invalid", "err", err)
		os.Exit(1)
	}
	logger.Info("configuration is valid", "version", cfg.Version, "channelCount", len(cfg.Mapping))

	if *validate {
		return
	}

	if *eepromPath == "" {
		logger.Error("--eeprom-file is required to write the configuration")
		os.Exit(1)
	}
	store := eepromfile.New(*eepromPath)
	if err := store.Save(cfg); err != nil {
		logger.Error("could not save eeprom image", "err", err)
		os.Exit(1)
	}
	logger.Info("wrote eeprom image", "path", *eepromPath)
}

func loadConfiguration(yamlPath, eepromPath string, loadDefaults bool, logger *log.Logger) (rcjoy.Configuration, error) {
	if loadDefaults {
		return rcjoy.DefaultConfiguration(), nil
	}

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return rcjoy.Configuration{}, fmt.Errorf("read %s: %w", yamlPath, err)
		}
		var cfg rcjoy.Configuration
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return rcjoy.Configuration{}, fmt.Errorf("parse %s: %w", yamlPath, err)
		}
		return cfg, nil
	}

	if eepromPath != "" {
		store := eepromfile.New(eepromPath)
		cfg, err := store.Load()
		if err != nil {
			logger.Warn("eeprom image unreadable, falling back to defaults", "err", err)
			return rcjoy.DefaultConfiguration(), nil
		}
		return cfg, nil
	}

	return rcjoy.Configuration{}, fmt.Errorf("one of --yaml-file, --eeprom-file, or --load-defaults is required")
}
