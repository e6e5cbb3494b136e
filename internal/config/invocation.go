package config

import (
	"errors"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"

	"github.com/fenilsonani/dircompress/internal/security"
	"github.com/fenilsonani/dircompress/pkg/utils"
)

// ErrInvalidInvocation marks errors caused by bad command line input
var ErrInvalidInvocation = errors.New("invalid invocation")

// Invocation is the raw, unvalidated input of one run
type Invocation struct {
	Dir    string
	Size   string
	Email  string
	DryRun bool
}

// Request is a validated Invocation
type Request struct {
	Target      string
	MinSize     int64
	MinSizeText string
	Email       string
	DryRun      bool
}

// WithDefaults fills empty fields from the configuration file
func (inv Invocation) WithDefaults(cfg *Config) Invocation {
	if cfg == nil {
		return inv
	}
	if inv.Dir == "" {
		inv.Dir = cfg.Target
	}
	if inv.Size == "" {
		inv.Size = cfg.MinSize
	}
	if inv.Email == "" {
		inv.Email = cfg.Email
	}
	inv.DryRun = inv.DryRun || cfg.DryRun
	return inv
}

// Validate checks the invocation and returns the request to run. All errors
// wrap ErrInvalidInvocation.
func (inv Invocation) Validate(pv *security.PathValidator) (*Request, error) {
	if pv == nil {
		pv = security.NewPathValidator()
	}

	dir, err := normalizeDir(inv.Dir)
	if err != nil {
		return nil, invalid("directory: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, invalid("directory does not exist: %s", dir)
		}
		return nil, invalid("cannot access directory %s: %v", dir, err)
	}
	if !info.IsDir() {
		return nil, invalid("not a directory: %s", dir)
	}

	target, err := pv.ValidateTarget(dir)
	if err != nil {
		return nil, invalid("%v", err)
	}

	size := strings.TrimSpace(inv.Size)
	if size == "" {
		return nil, invalid("size is required (for example 10, 1K, 1.5M, 2G)")
	}
	if !utils.IsValidSize(size) {
		return nil, invalid("size %q must look like 10, 1K, 1.5M or 2G", inv.Size)
	}
	minSize, err := utils.ParseSize(size)
	if err != nil {
		return nil, invalid("%v", err)
	}

	req := &Request{
		Target:      target,
		MinSize:     minSize,
		MinSizeText: size,
		DryRun:      inv.DryRun,
	}

	if email := strings.TrimSpace(inv.Email); email != "" {
		addr, err := mail.ParseAddress(email)
		if err != nil {
			return nil, invalid("email %q is not a valid address: %v", inv.Email, err)
		}
		req.Email = addr.Address
	}

	return req, nil
}

// normalizeDir strips trailing separators and makes the path absolute
func normalizeDir(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", errors.New("no directory given")
	}
	trimmed := strings.TrimRight(dir, string(filepath.Separator)+"/")
	if trimmed == "" {
		trimmed = string(filepath.Separator)
	}
	return filepath.Abs(trimmed)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInvocation, fmt.Sprintf(format, args...))
}
