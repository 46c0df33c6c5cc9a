package device

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/klauspost/cpuid"
	"github.com/shirou/gopsutil/host"
)

// Metal Performance Shaders need Apple silicon and macOS 12.3 or later.
var minMetalOS = version.Must(version.NewVersion("12.3"))

const probeTimeout = 10 * time.Second

// MetalProbe reports whether the MPS backend can be used on this host.
func MetalProbe(ctx context.Context) (bool, error) {
	return metalProbe(runtime.GOOS, runtime.GOARCH, hostVersion)(ctx)
}

// metalProbe checks for Apple silicon on a recent enough macOS. osVersion
// returns the macOS product version, e.g. "14.2.1".
func metalProbe(goos, goarch string, osVersion func() (string, error)) Probe {
	return func(context.Context) (bool, error) {
		if goos != "darwin" || goarch != "arm64" {
			return false, nil
		}
		ver, err := osVersion()
		if err != nil {
			return false, fmt.Errorf("read macOS version: %w", err)
		}
		v, err := version.NewVersion(ver)
		if err != nil {
			return false, fmt.Errorf("parse macOS version %q: %w", ver, err)
		}
		return v.Compare(minMetalOS) >= 0, nil
	}
}

func hostVersion() (string, error) {
	_, _, ver, err := host.PlatformInformation()
	return ver, err
}

// CUDAProbe reports whether the NVIDIA driver lists at least one GPU.
func CUDAProbe(ctx context.Context) (bool, error) {
	bin, err := exec.LookPath("nvidia-smi")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, bin, "-L").Output()
	if err != nil {
		return false, fmt.Errorf("nvidia-smi -L: %w", err)
	}
	return countGPUs(out) > 0, nil
}

// countGPUs counts the "GPU <n>: ..." lines of `nvidia-smi -L`.
func countGPUs(out []byte) int {
	n := 0
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if strings.HasPrefix(strings.TrimSpace(sc.Text()), "GPU ") {
			n++
		}
	}
	return n
}

func platformInfo() string {
	platform, family, ver, err := host.PlatformInformation()
	if err != nil {
		return runtime.GOOS + "/" + runtime.GOARCH
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s %s %s/%s", platform, family, ver, runtime.GOOS, runtime.GOARCH))
}

func describeCPU() string {
	cpu := cpuid.CPU
	if cpu.BrandName == "" {
		return fmt.Sprintf("%d logical cores", runtime.NumCPU())
	}
	return fmt.Sprintf("%s, %d cores, %d threads", cpu.BrandName, cpu.PhysicalCores, cpu.LogicalCores)
}
