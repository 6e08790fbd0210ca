package pqdecode

import (
	"fmt"
	"strings"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultReadBufferSize  = 64 * 1024
	DefaultVerifyChecksums = true
)

// The DecoderConfig type carries configuration options for decoders.
//
// DecoderConfig implements the DecoderOption interface so it can be used
// directly as argument to the OpenDecoder function when needed, for example:
//
//	decoder, err := pqdecode.OpenDecoder(file, size, &pqdecode.DecoderConfig{
//		ReadBufferSize:  1024 * 1024,
//		VerifyChecksums: true,
//	})
//
// When used as an option, the boolean settings of the configuration all
// override the values of the configuration it is applied to.
type DecoderConfig struct {
	// Size of the buffer used to read page headers and page data.
	ReadBufferSize int
	// Compare the CRC32 checksums recorded in page headers to the checksums
	// of the page data.
	VerifyChecksums bool
	// Logger receives the debug and warning events of the decoder.
	Logger log.Logger
	// Registerer is where the metrics of the decoder are registered, no
	// metrics are collected when nil.
	Registerer prometheus.Registerer
}

// DefaultDecoderConfig returns a new DecoderConfig value initialized with the
// default decoder configuration.
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		ReadBufferSize:  DefaultReadBufferSize,
		VerifyChecksums: DefaultVerifyChecksums,
		Logger:          log.NewNopLogger(),
	}
}

// NewDecoderConfig constructs a new decoder configuration applying the
// options passed as arguments.
//
// The function returns an non-nil error if some of the options carried
// invalid configuration values.
func NewDecoderConfig(options ...DecoderOption) (*DecoderConfig, error) {
	config := DefaultDecoderConfig()
	config.Apply(options...)
	return config, config.Validate()
}

// Apply applies the given list of options to c.
func (c *DecoderConfig) Apply(options ...DecoderOption) {
	for _, opt := range options {
		opt.ConfigureDecoder(c)
	}
}

// ConfigureDecoder applies configuration options from c to config.
func (c *DecoderConfig) ConfigureDecoder(config *DecoderConfig) {
	*config = DecoderConfig{
		ReadBufferSize:  coalesceInt(c.ReadBufferSize, config.ReadBufferSize),
		VerifyChecksums: c.VerifyChecksums,
		Logger:          coalesceLogger(c.Logger, config.Logger),
		Registerer:      coalesceRegisterer(c.Registerer, config.Registerer),
	}
}

// Validate returns a non-nil error if the configuration of c is invalid.
func (c *DecoderConfig) Validate() error {
	const baseName = "pqdecode.(*DecoderConfig)."
	return errorInvalidConfiguration(
		validatePositiveInt(baseName+"ReadBufferSize", c.ReadBufferSize),
		validateNotNil(baseName+"Logger", c.Logger),
	)
}

// DecoderOption is an interface implemented by types that carry configuration
// options for decoders.
type DecoderOption interface {
	ConfigureDecoder(*DecoderConfig)
}

// ReadBufferSize configures the size of the buffer used to read column chunks.
//
// Defaults to 64 KiB.
func ReadBufferSize(size int) DecoderOption {
	return decoderOption(func(config *DecoderConfig) { config.ReadBufferSize = size })
}

// VerifyChecksums configures whether page checksums are verified.
//
// Defaults to true.
func VerifyChecksums(verify bool) DecoderOption {
	return decoderOption(func(config *DecoderConfig) { config.VerifyChecksums = verify })
}

// Logger configures the logger of decoders.
//
// By default, nothing is logged.
func Logger(logger log.Logger) DecoderOption {
	return decoderOption(func(config *DecoderConfig) { config.Logger = logger })
}

// Registerer configures the prometheus registerer where the metrics of the
// decoder are registered.
//
// By default, metrics are not collected.
func Registerer(reg prometheus.Registerer) DecoderOption {
	return decoderOption(func(config *DecoderConfig) { config.Registerer = reg })
}

type decoderOption func(*DecoderConfig)

func (opt decoderOption) ConfigureDecoder(config *DecoderConfig) { opt(config) }

func coalesceInt(i1, i2 int) int {
	if i1 != 0 {
		return i1
	}
	return i2
}

func coalesceLogger(l1, l2 log.Logger) log.Logger {
	if l1 != nil {
		return l1
	}
	return l2
}

func coalesceRegisterer(r1, r2 prometheus.Registerer) prometheus.Registerer {
	if r1 != nil {
		return r1
	}
	return r2
}

func validatePositiveInt(optionName string, optionValue int) error {
	if optionValue > 0 {
		return nil
	}
	return errorInvalidOptionValue(optionName, optionValue)
}

func validateNotNil(optionName string, optionValue interface{}) error {
	if optionValue != nil {
		return nil
	}
	return errorInvalidOptionValue(optionName, optionValue)
}

func errorInvalidOptionValue(optionName string, optionValue interface{}) error {
	return fmt.Errorf("invalid option value: %s: %v", optionName, optionValue)
}

func errorInvalidConfiguration(reasons ...error) error {
	var err *invalidConfiguration

	for _, reason := range reasons {
		if reason != nil {
			if err == nil {
				err = new(invalidConfiguration)
			}
			err.reasons = append(err.reasons, reason)
		}
	}

	if err != nil {
		return &Error{Kind: Invalid, Message: "invalid decoder configuration", Err: err}
	}

	return nil
}

type invalidConfiguration struct {
	reasons []error
}

func (err *invalidConfiguration) Error() string {
	errorMessage := new(strings.Builder)
	for _, reason := range err.reasons {
		errorMessage.WriteString(reason.Error())
		errorMessage.WriteString("\n")
	}
	errorString := errorMessage.String()
	if errorString != "" {
		errorString = errorString[:len(errorString)-1]
	}
	return errorString
}
