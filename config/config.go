package config

import (
	"os"
	"strconv"
	"time"
)

// Simulation constants - must match the server exactly or prediction drifts
const (
	// Timing
	PhysicsTickRate     = 30 // Hz, server simulation rate
	PhysicsTickInterval = 1.0 / float64(PhysicsTickRate)
	MaxFrameDelta       = 0.25 // seconds, cap after a stall so catch-up stays bounded

	// Movement
	WalkSpeed       = 4.2  // units/s
	SprintSpeed     = 6.5  // units/s
	DiveImpulse     = 7.5  // units/s horizontal burst
	JumpVelocity    = 5.6  // units/s
	Gravity         = 18.0 // units/s^2
	PlayerRadius    = 0.45
	GroundSnapRange = 0.05

	// Projectiles
	ProjectileSpeed       = 55.0 // units/s muzzle velocity
	ProjectileGravity     = 22.0 // units/s^2, engaged after FlatTrajectoryRange
	FlatTrajectoryRange   = 40.0 // units of travel before drop-off
	ProjectileLifetime    = 3.0  // seconds
	ProjectileSubsteps    = 4    // collision substeps per tick
	FireCooldown          = 180 * time.Millisecond
	PredictionMatchWindow = 500 * time.Millisecond

	// Hitboxes
	HeadRadius = 0.22
	HeadHeight = 1.62 // head center above feet
	BodyRadius = 0.48
	BodyHeight = 0.95 // body center above feet
)

// Reconciliation tuning (client-side only, no server contract)
const (
	// ErrorDecayRate controls how fast the visible correction offset
	// converges to zero: offset *= exp(-rate * frameDelta).
	ErrorDecayRate = 9.0
	// ErrorSnapEpsilon collapses the offset once it is imperceptible.
	ErrorSnapEpsilon = 0.001
)

// Network tuning
const (
	MaxPendingMessages   = 256 // bounded inbound high-frequency queue
	DefaultDrainBudget   = 32  // messages handled per frame
	DrainFallbackPeriod  = 250 * time.Millisecond
	MaxReconnectAttempts = 5
	ReconnectBaseDelay   = 500 * time.Millisecond
	ReconnectMaxDelay    = 8 * time.Second
	SendBufferSize       = 256
	WriteTimeout         = 10 * time.Second
	PongTimeout          = 60 * time.Second
	PingPeriod           = 30 * time.Second
	MaxMessageSize       = 16 * 1024
)

// ClientConfig holds runtime client configuration
type ClientConfig struct {
	ServerURL      string
	PlayerName     string
	DrainBudget    int
	DebugLatencyMS int // symmetric one-way delay for testing, 0 disables
	TargetFPS      int
	// RejectStaleSnapshots switches snapshot admission from arrival-order
	// to reject-stale. Only meaningful once the transform message carries
	// a server timestamp.
	RejectStaleSnapshots bool
}

// DefaultClientConfig returns default client configuration
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		ServerURL:   "ws://localhost:8080/ws",
		PlayerName:  "Player",
		DrainBudget: DefaultDrainBudget,
		TargetFPS:   60,
	}
}

// LoadClientConfig reads configuration from environment variables,
// falling back to defaults for anything unset.
func LoadClientConfig() *ClientConfig {
	cfg := DefaultClientConfig()

	if url := os.Getenv("SKIRMISH_SERVER_URL"); url != "" {
		cfg.ServerURL = url
	}
	if name := os.Getenv("SKIRMISH_PLAYER_NAME"); name != "" {
		cfg.PlayerName = name
	}
	if v := os.Getenv("SKIRMISH_DRAIN_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DrainBudget = n
		}
	}
	if v := os.Getenv("SKIRMISH_DEBUG_LATENCY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.DebugLatencyMS = n
		}
	}
	if v := os.Getenv("SKIRMISH_REJECT_STALE_SNAPSHOTS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RejectStaleSnapshots = b
		}
	}
	if v := os.Getenv("SKIRMISH_TARGET_FPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TargetFPS = n
		}
	}

	return cfg
}
