// Package game implements the client-side simulation: the fixed-step
// loop, local prediction, remote interpolation, and projectile flight.
package game

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/skirmish/client/config"
	"github.com/skirmish/client/internal/protocol"
)

// inputLogSize bounds the retained history of sent samples, kept for
// diagnostics and future replay reconciliation.
const inputLogSize = 128

// SimulationConfig wires the simulation to its collaborators. Transmit
// and Drain connect it to the network layer without the game package
// importing it.
type SimulationConfig struct {
	FixedStep   float64
	DrainBudget int

	// Transmit sends one input frame to the server. Called exactly once
	// per physics step.
	Transmit func(frame protocol.InputFrame)

	// Drain processes up to budget queued network messages and returns
	// how many were handled. Called once per render frame, before
	// interpolation state is read.
	Drain func(budget int) int

	Device   InputDevice
	Geometry GeometryQuery
	Clock    clockwork.Clock

	// Ordering selects the snapshot admission policy. The zero value is
	// OrderingArrival.
	Ordering SnapshotOrdering

	// OnShoot is invoked when a predicted projectile spawns, so the
	// caller can notify the server. Optional.
	OnShoot func(origin, dir Vec3)

	// OnHit receives locally detected projectile strikes, for impact
	// effects. Optional.
	OnHit func(hit HitReport)
}

// Simulation owns all gameplay state on the client. Every mutation of
// that state happens on the goroutine that calls Advance, which is what
// lets the world run without locks.
type Simulation struct {
	cfg         SimulationConfig
	scheduler   *Scheduler
	world       *World
	projectiles *ProjectileSet
	seq         sequencer

	inputLog []InputSample
	steps    uint64
}

// NewSimulation builds a simulation. The local entity is registered
// later, once the join handshake reports its id.
func NewSimulation(cfg SimulationConfig) *Simulation {
	if cfg.FixedStep <= 0 {
		cfg.FixedStep = config.PhysicsTickInterval
	}
	if cfg.DrainBudget <= 0 {
		cfg.DrainBudget = config.DefaultDrainBudget
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Geometry == nil {
		cfg.Geometry = FlatGround{}
	}

	s := &Simulation{
		cfg:         cfg,
		world:       NewWorld(cfg.Geometry, cfg.Ordering),
		projectiles: NewProjectileSet(cfg.Clock),
		inputLog:    make([]InputSample, 0, inputLogSize),
	}
	s.scheduler = NewScheduler(cfg.FixedStep, s.step)

	s.scheduler.AddFrameHook(func(frameDelta float64) {
		if s.cfg.Drain != nil {
			s.cfg.Drain(s.cfg.DrainBudget)
		}
		s.world.SetAlpha(s.scheduler.Alpha())
		s.world.DecayError(frameDelta)
		s.projectiles.PruneExpired()
	})
	return s
}

// World exposes the entity table for rendering and handlers.
func (s *Simulation) World() *World { return s.world }

// Projectiles exposes the projectile set for rendering.
func (s *Simulation) Projectiles() *ProjectileSet { return s.projectiles }

// Steps reports how many physics steps have executed.
func (s *Simulation) Steps() uint64 { return s.steps }

// SetLocalEntity registers the locally controlled entity after the join
// handshake.
func (s *Simulation) SetLocalEntity(id uint32, spawn Vec3) {
	s.world.SetLocalEntity(id, spawn)
	log.Info().Uint32("entity", id).Msg("local entity registered")
}

// Advance runs one render frame worth of simulation and returns the
// number of physics steps executed.
func (s *Simulation) Advance(frameDelta float64) int {
	return s.scheduler.Advance(frameDelta)
}

// step is the fixed-rate physics body: capture exactly one input
// sample, stamp it, predict with it, transmit it, then fly projectiles.
func (s *Simulation) step(dt float64) {
	s.steps++

	var state InputState
	if s.cfg.Device != nil {
		state = s.cfg.Device.Sample()
	}
	sample := s.seq.stamp(state, dt, s.cfg.Clock.Now())
	s.recordSample(sample)

	s.world.PredictLocal(sample)

	if s.cfg.Transmit != nil {
		s.cfg.Transmit(sample.Frame())
	}

	local := s.world.Local()
	var targets []TargetHitboxes
	if local != nil {
		targets = s.world.TargetsExcept(local.ID)
	}
	for _, hit := range s.projectiles.Step(dt, targets) {
		if s.cfg.OnHit != nil {
			s.cfg.OnHit(hit)
		}
	}
}

func (s *Simulation) recordSample(sample InputSample) {
	if len(s.inputLog) == inputLogSize {
		copy(s.inputLog, s.inputLog[1:])
		s.inputLog = s.inputLog[:inputLogSize-1]
	}
	s.inputLog = append(s.inputLog, sample)
}

// Shoot fires from the local eye point along the current aim. The shot
// spawns speculatively and is reported through OnShoot for the server
// round trip; the cooldown gate decides whether it happens at all.
func (s *Simulation) Shoot() bool {
	local := s.world.Local()
	if local == nil {
		return false
	}
	origin, _ := s.world.EyePosition()
	dir, _ := s.world.AimDirection()

	p, ok := s.projectiles.TrySpawnPredicted(local.ID, origin, dir, config.ProjectileSpeed)
	if !ok {
		return false
	}
	log.Debug().Int64("projectile", p.ID).Msg("predicted projectile spawned")
	if s.cfg.OnShoot != nil {
		s.cfg.OnShoot(origin, dir)
	}
	return true
}

// HandleTransform applies an authoritative transform snapshot. Wire it
// to the network drain so it runs on the simulation goroutine.
func (s *Simulation) HandleTransform(snap protocol.TransformSnapshot) {
	s.world.ApplyTransform(snap)
}

// HandleProjectileSpawn applies an authoritative spawn, matching and
// retiring the local prediction when the owner is the local player.
func (s *Simulation) HandleProjectileSpawn(spawn protocol.ProjectileSpawn) {
	s.projectiles.Confirm(spawn)
}

// HandleProjectileBatch applies a batched spawn volley.
func (s *Simulation) HandleProjectileBatch(spawns []protocol.ProjectileSpawn) {
	s.projectiles.ConfirmBatch(spawns)
}

// HandleProjectileDestroy removes a projectile the server despawned.
func (s *Simulation) HandleProjectileDestroy(id int32) {
	s.projectiles.Destroy(int64(id))
}

// HandlePlayerLeft drops a departed player's entity.
func (s *Simulation) HandlePlayerLeft(entityID uint32) {
	s.world.Remove(entityID)
}

// RecentSamples returns the tail of the sent-input history, newest
// last.
func (s *Simulation) RecentSamples(n int) []InputSample {
	if n > len(s.inputLog) {
		n = len(s.inputLog)
	}
	out := make([]InputSample, n)
	copy(out, s.inputLog[len(s.inputLog)-n:])
	return out
}

// StepDuration returns the fixed timestep as a duration, for frame
// pacing by callers.
func (s *Simulation) StepDuration() time.Duration {
	return time.Duration(s.scheduler.Step() * float64(time.Second))
}
