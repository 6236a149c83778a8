package xir

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// fileOptions mirrors Options in a pipeline config file. Pointer fields
// distinguish settings that are absent from settings set to their zero
// value.
type fileOptions struct {
	Passes   []string `toml:"passes"`
	Validate *bool    `toml:"validate"`
	Workers  *int     `toml:"workers"`
	LogLevel *string  `toml:"log_level"`
}

// LoadOptions reads a TOML pipeline config such as
//
//	passes = ["transpose_gep", "mem2reg", "dce"]
//	validate = true
//	workers = 8
//	log_level = "debug"
//
// Settings missing from the file keep their DefaultOptions value.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, errors.Wrap(err, "reading pipeline config")
	}
	opts, err := ParseOptions(data)
	if err != nil {
		return Options{}, errors.Wrapf(err, "pipeline config %s", path)
	}
	return opts, nil
}

// ParseOptions decodes a TOML pipeline config on top of DefaultOptions.
func ParseOptions(data []byte) (Options, error) {
	var file fileOptions
	if err := toml.Unmarshal(data, &file); err != nil {
		return Options{}, errors.Wrap(err, "decoding toml")
	}
	opts := DefaultOptions()
	if file.Passes != nil {
		opts.Passes = file.Passes
	}
	if file.Validate != nil {
		opts.Validate = *file.Validate
	}
	if file.Workers != nil {
		opts.Workers = *file.Workers
	}
	if file.LogLevel != nil {
		opts.LogLevel = *file.LogLevel
	}
	if err := opts.Check(); err != nil {
		return Options{}, err
	}
	return opts, nil
}
