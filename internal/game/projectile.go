package game

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/skirmish/client/config"
	"github.com/skirmish/client/internal/protocol"
)

// HitReport describes a projectile striking a target during a local
// simulation step. It is cosmetic: the server resolves damage.
type HitReport struct {
	ProjectileID int64
	OwnerID      uint32
	TargetID     uint32
	Region       HitRegion
	Position     Vec3
}

// Projectile is one bullet in flight. Predicted projectiles carry
// negative ids until the server confirms them; authoritative ids are
// always positive.
type Projectile struct {
	ID        int64
	OwnerID   uint32
	Position  Vec3
	Direction Vec3 // unit
	Speed     float64
	Traveled  float64
	Remaining float64 // seconds of lifetime left
	SpawnedAt time.Time
	Predicted bool
}

// ProjectileSet tracks every projectile the client simulates, both the
// speculative local spawns and the server-confirmed population.
//
// Matching works on owner identity alone: the server enforces the fire
// cooldown per player, so at most one unconfirmed projectile per owner
// can exist inside the match window, which makes owner id an unambiguous
// key.
type ProjectileSet struct {
	clock            clockwork.Clock
	projectiles      map[int64]*Projectile
	predictedByOwner map[uint32]int64
	cooldownUntil    map[uint32]time.Time
	nextPredictedID  int64
}

func NewProjectileSet(clock clockwork.Clock) *ProjectileSet {
	return &ProjectileSet{
		clock:            clock,
		projectiles:      make(map[int64]*Projectile),
		predictedByOwner: make(map[uint32]int64),
		cooldownUntil:    make(map[uint32]time.Time),
		nextPredictedID:  -1,
	}
}

// Len reports how many projectiles are in flight.
func (ps *ProjectileSet) Len() int {
	return len(ps.projectiles)
}

// PredictedCount reports how many projectiles are still awaiting server
// confirmation.
func (ps *ProjectileSet) PredictedCount() int {
	return len(ps.predictedByOwner)
}

// All returns the live projectiles in unspecified order, for rendering.
func (ps *ProjectileSet) All() []*Projectile {
	out := make([]*Projectile, 0, len(ps.projectiles))
	for _, p := range ps.projectiles {
		out = append(out, p)
	}
	return out
}

// TrySpawnPredicted creates a speculative projectile for the local
// player's shot. It fails when the owner's fire cooldown has not
// elapsed, mirroring the server's own gate so client and server agree
// on which trigger pulls produce bullets.
func (ps *ProjectileSet) TrySpawnPredicted(ownerID uint32, origin, dir Vec3, speed float64) (*Projectile, bool) {
	now := ps.clock.Now()
	if until, ok := ps.cooldownUntil[ownerID]; ok && now.Before(until) {
		return nil, false
	}

	p := &Projectile{
		ID:        ps.nextPredictedID,
		OwnerID:   ownerID,
		Position:  origin,
		Direction: dir.Normalized(),
		Speed:     speed,
		Remaining: config.ProjectileLifetime,
		SpawnedAt: now,
		Predicted: true,
	}
	ps.nextPredictedID--
	ps.projectiles[p.ID] = p
	ps.predictedByOwner[ownerID] = p.ID
	ps.cooldownUntil[ownerID] = now.Add(config.FireCooldown)
	return p, true
}

// Confirm replaces the owner's pending predicted projectile (if any)
// with the authoritative one. Spawns by other players insert directly.
func (ps *ProjectileSet) Confirm(spawn protocol.ProjectileSpawn) *Projectile {
	ps.retirePredicted(spawn.OwnerID)
	p := &Projectile{
		ID:      int64(spawn.ProjectileID),
		OwnerID: spawn.OwnerID,
		Position: Vec3{
			X: float64(spawn.PosX), Y: float64(spawn.PosY), Z: float64(spawn.PosZ),
		},
		Direction: Vec3{
			X: float64(spawn.DirX), Y: float64(spawn.DirY), Z: float64(spawn.DirZ),
		}.Normalized(),
		Speed:     float64(spawn.Speed),
		Remaining: config.ProjectileLifetime,
		SpawnedAt: ps.clock.Now(),
	}
	ps.projectiles[p.ID] = p
	return p
}

// ConfirmBatch applies a batched spawn message. Every spawn in a batch
// shares one owner, so the predicted placeholder is retired once and the
// whole volley inserts as authoritative.
func (ps *ProjectileSet) ConfirmBatch(spawns []protocol.ProjectileSpawn) {
	if len(spawns) == 0 {
		return
	}
	ps.retirePredicted(spawns[0].OwnerID)
	for i := range spawns {
		s := spawns[i]
		ps.projectiles[int64(s.ProjectileID)] = &Projectile{
			ID:      int64(s.ProjectileID),
			OwnerID: s.OwnerID,
			Position: Vec3{
				X: float64(s.PosX), Y: float64(s.PosY), Z: float64(s.PosZ),
			},
			Direction: Vec3{
				X: float64(s.DirX), Y: float64(s.DirY), Z: float64(s.DirZ),
			}.Normalized(),
			Speed:     float64(s.Speed),
			Remaining: config.ProjectileLifetime,
			SpawnedAt: ps.clock.Now(),
		}
	}
}

func (ps *ProjectileSet) retirePredicted(ownerID uint32) {
	if id, ok := ps.predictedByOwner[ownerID]; ok {
		delete(ps.projectiles, id)
		delete(ps.predictedByOwner, ownerID)
	}
}

// Destroy removes a projectile by authoritative id.
func (ps *ProjectileSet) Destroy(id int64) {
	delete(ps.projectiles, id)
}

// Step advances every projectile by one fixed step, sweeping each
// substep segment against the supplied targets. Local hits only despawn
// the projectile and report the strike; the authoritative outcome comes
// from the server.
func (ps *ProjectileSet) Step(dt float64, targets []TargetHitboxes) []HitReport {
	var hits []HitReport
	sub := dt / float64(config.ProjectileSubsteps)

	for id, p := range ps.projectiles {
		p.Remaining -= dt
		if p.Remaining <= 0 {
			delete(ps.projectiles, id)
			if p.Predicted {
				delete(ps.predictedByOwner, p.OwnerID)
			}
			continue
		}

		alive := true
		for i := 0; i < config.ProjectileSubsteps && alive; i++ {
			vel := p.Direction.Scale(p.Speed)
			if p.Traveled >= config.FlatTrajectoryRange {
				vel.Y -= config.ProjectileGravity * sub
			}
			next := p.Position.Add(vel.Scale(sub))
			p.Traveled += Distance(p.Position, next)

			for _, t := range targets {
				if t.EntityID == p.OwnerID {
					continue
				}
				region := t.Test(p.Position, next)
				if region == HitNone {
					continue
				}
				hits = append(hits, HitReport{
					ProjectileID: p.ID,
					OwnerID:      p.OwnerID,
					TargetID:     t.EntityID,
					Region:       region,
					Position:     next,
				})
				delete(ps.projectiles, id)
				if p.Predicted {
					delete(ps.predictedByOwner, p.OwnerID)
				}
				alive = false
				break
			}
			if !alive {
				break
			}

			p.Position = next
			// Gravity bends the path: fold the new velocity back into
			// direction and speed so subsequent substeps keep curving.
			speed := vel.Length()
			if speed > 0 {
				p.Direction = vel.Scale(1 / speed)
				p.Speed = speed
			}
		}
	}
	return hits
}

// PruneExpired drops predicted projectiles whose confirmation window has
// passed. An expired placeholder means the server rejected the shot or
// the spawn message was lost.
func (ps *ProjectileSet) PruneExpired() {
	now := ps.clock.Now()
	for owner, id := range ps.predictedByOwner {
		p, ok := ps.projectiles[id]
		if !ok {
			delete(ps.predictedByOwner, owner)
			continue
		}
		if now.Sub(p.SpawnedAt) > config.PredictionMatchWindow {
			log.Debug().Int64("projectile", id).Uint32("owner", owner).
				Msg("predicted projectile expired unconfirmed")
			delete(ps.projectiles, id)
			delete(ps.predictedByOwner, owner)
		}
	}
}
