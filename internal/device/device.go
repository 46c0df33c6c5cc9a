// Package device picks the compute backend handed to the trainer. Selection
// is advisory: every probe failure degrades to the CPU and Select never
// returns an error.
package device

import (
	"context"
	"fmt"
	"runtime"

	"github.com/specialistvlad/detprep/internal/ctxlog"
)

// Kind is the tier of the selected backend.
type Kind int

const (
	CPU Kind = iota
	GenericAccelerator
	PreferredAccelerator
)

func (k Kind) String() string {
	switch k {
	case PreferredAccelerator:
		return "preferred-accelerator"
	case GenericAccelerator:
		return "generic-accelerator"
	default:
		return "cpu"
	}
}

// Tokens understood by the training framework.
const (
	TokenMetal = "mps"
	TokenCUDA  = "cuda"
	TokenCPU   = "cpu"
)

// Device is the outcome of a selection.
type Device struct {
	Kind        Kind
	Token       string
	Description string
}

func (d Device) String() string { return d.Token }

// Probe reports whether a backend is usable on this host.
type Probe func(ctx context.Context) (bool, error)

// Selector walks the fallback chain: platform-specific accelerator, generic
// accelerator, CPU.
type Selector struct {
	goos      string
	goarch    string
	osVersion func() (string, error)
	preferred Probe
	generic   Probe
	custom    bool
	describe  func() string
}

// Option configures a Selector.
type Option func(*Selector)

// WithPlatform overrides the detected operating system and architecture
// (runtime.GOOS, runtime.GOARCH). The default probes are wired for, and
// evaluated against, this platform.
func WithPlatform(goos, goarch string) Option {
	return func(s *Selector) {
		s.goos = goos
		s.goarch = goarch
	}
}

// withOSVersion replaces the host OS version lookup used by the Metal probe.
func withOSVersion(fn func() (string, error)) Option {
	return func(s *Selector) { s.osVersion = fn }
}

// WithProbes replaces the accelerator probes. A nil probe marks the tier as
// unavailable.
func WithProbes(preferred, generic Probe) Option {
	return func(s *Selector) {
		s.preferred = preferred
		s.generic = generic
		s.custom = true
	}
}

// NewSelector returns a Selector using the host probes: Metal on macOS and
// CUDA through the NVIDIA driver tools.
func NewSelector(opts ...Option) *Selector {
	s := &Selector{
		goos:      runtime.GOOS,
		goarch:    runtime.GOARCH,
		osVersion: hostVersion,
		describe:  describeCPU,
	}
	for _, opt := range opts {
		opt(s)
	}

	if !s.custom {
		if s.goos == "darwin" {
			s.preferred = metalProbe(s.goos, s.goarch, s.osVersion)
		}
		s.generic = CUDAProbe
	}
	return s
}

// Select returns the best available device.
func (s *Selector) Select(ctx context.Context) Device {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Probing compute devices.", "platform", s.goos+"/"+s.goarch, "platform_info", platformInfo())

	if run(ctx, "metal", s.preferred) {
		return Device{Kind: PreferredAccelerator, Token: TokenMetal, Description: "Apple Metal (MPS)"}
	}
	if run(ctx, "cuda", s.generic) {
		return Device{Kind: GenericAccelerator, Token: TokenCUDA, Description: "NVIDIA CUDA"}
	}
	return Device{Kind: CPU, Token: TokenCPU, Description: s.describe()}
}

// run executes a probe, folding errors and panics into "unavailable".
func run(ctx context.Context, name string, p Probe) (ok bool) {
	if p == nil {
		return false
	}
	logger := ctxlog.FromContext(ctx).With("backend", name)

	defer func() {
		if r := recover(); r != nil {
			logger.Debug("Device probe panicked, treating backend as unavailable.", "panic", fmt.Sprint(r))
			ok = false
		}
	}()

	ok, err := p(ctx)
	if err != nil {
		logger.Debug("Device probe failed, treating backend as unavailable.", "error", err)
		return false
	}
	logger.Debug("Device probe finished.", "available", ok)
	return ok
}
