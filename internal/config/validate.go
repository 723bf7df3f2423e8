package config

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrInvalidExtension indicates a file extension that cannot form a glob
	ErrInvalidExtension = errors.New("invalid file extension")

	// ErrInvalidExclude indicates an exclude pattern that does not compile
	ErrInvalidExclude = errors.New("invalid exclude pattern")

	// ErrInvalidScanSettings indicates invalid scan limits
	ErrInvalidScanSettings = errors.New("invalid scan settings")
)

// Validate checks that the configuration is valid and complete.
// The regex option is not validated here; it is inert and a bad value only
// produces a warning.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateComments(&cfg.Comments); err != nil {
		errs = append(errs, err)
	}

	if err := validateScan(&cfg.Scan); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateComments(cfg *CommentsConfig) error {
	var errs []error

	for _, ext := range cfg.FileExtensions {
		bare := strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if bare == "" {
			errs = append(errs, fmt.Errorf("%w: empty extension", ErrInvalidExtension))
			continue
		}
		if strings.ContainsAny(bare, "/\\{},*?[]") {
			errs = append(errs, fmt.Errorf("%w: %q contains path or glob characters", ErrInvalidExtension, ext))
		}
	}

	for _, pattern := range cfg.Exclude {
		if strings.TrimSpace(pattern) == "" {
			errs = append(errs, fmt.Errorf("%w: empty pattern", ErrInvalidExclude))
			continue
		}
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidExclude, pattern, err))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateScan(cfg *ScanConfig) error {
	var errs []error

	// Zero max_files falls back to the default cap
	if cfg.MaxFiles < 0 {
		errs = append(errs, fmt.Errorf("%w: max_files cannot be negative, got %d", ErrInvalidScanSettings, cfg.MaxFiles))
	}

	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers cannot be negative, got %d", ErrInvalidScanSettings, cfg.Workers))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// warnRegex logs when the regex option does not compile.
func warnRegex(pattern string) {
	if pattern == "" {
		return
	}
	if _, err := regexp.Compile(pattern); err != nil {
		log.Printf("Warning: commentExplorer.regex does not compile and is ignored: %v", err)
	}
}

// joinErrors combines multiple errors into a single error with clear formatting.
// Each wrapped error stays reachable through errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return &validationError{
		msg:  fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - ")),
		errs: errs,
	}
}

type validationError struct {
	msg  string
	errs []error
}

func (e *validationError) Error() string   { return e.msg }
func (e *validationError) Unwrap() []error { return e.errs }
