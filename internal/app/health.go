package app

import (
	"sync/atomic"

	"github.com/florianilch/gravity-proxy/internal/proxy"
)

// Phase is a stage of the application lifecycle.
type Phase int32

const (
	PhaseStarting Phase = iota
	PhaseServing
	PhaseDraining
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseServing:
		return "serving"
	case PhaseDraining:
		return "draining"
	default:
		return "unknown"
	}
}

// Health tracks the lifecycle phase for the readiness probe. Only PhaseServing is ready, so
// load balancers stop routing new requests as soon as draining begins.
// All methods are safe for concurrent use.
type Health struct {
	phase atomic.Int32
}

// Compile-time check that Health implements proxy.ReadinessChecker interface
var _ proxy.ReadinessChecker = (*Health)(nil)

// NewHealth creates a Health in PhaseStarting.
func NewHealth() *Health {
	return &Health{}
}

// Enter moves to phase.
func (h *Health) Enter(phase Phase) {
	h.phase.Store(int32(phase))
}

// Phase returns the current phase.
func (h *Health) Phase() Phase {
	return Phase(h.phase.Load())
}

// IsReady reports whether the application is serving.
func (h *Health) IsReady() bool {
	return h.Phase() == PhaseServing
}

// String reports the current phase name on the readiness probe.
func (h *Health) String() string {
	return h.Phase().String()
}
