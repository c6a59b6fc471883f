package game

import "github.com/skirmish/client/config"

// Hitbox is a sphere in world space.
type Hitbox struct {
	Center Vec3
	Radius float64
}

// TargetHitboxes bundles the two hit spheres of one entity.
type TargetHitboxes struct {
	EntityID uint32
	Head     Hitbox
	Body     Hitbox
}

// HitRegion identifies which sphere a trace struck.
type HitRegion int

const (
	HitNone HitRegion = iota
	HitHead
	HitBody
)

// Test traces the segment from -> to against the target. The head is
// checked before the body: when a trace clips both, the head wins.
func (t TargetHitboxes) Test(from, to Vec3) HitRegion {
	if segmentHitsSphere(from, to, t.Head) {
		return HitHead
	}
	if segmentHitsSphere(from, to, t.Body) {
		return HitBody
	}
	return HitNone
}

// segmentHitsSphere reports whether the segment passes within the
// sphere's radius, using the closest point on the segment to the center.
func segmentHitsSphere(from, to Vec3, s Hitbox) bool {
	seg := to.Sub(from)
	lenSq := seg.Dot(seg)
	var closest Vec3
	if lenSq == 0 {
		closest = from
	} else {
		t := s.Center.Sub(from).Dot(seg) / lenSq
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
		closest = from.Add(seg.Scale(t))
	}
	return Distance(closest, s.Center) <= s.Radius
}

// TargetsExcept builds hitboxes for every entity except the owner, at
// their current render positions so hits line up with what the player
// sees.
func (w *World) TargetsExcept(ownerID uint32) []TargetHitboxes {
	targets := make([]TargetHitboxes, 0, len(w.entities))
	for id := range w.entities {
		if id == ownerID {
			continue
		}
		pos, ok := w.RenderPosition(id)
		if !ok {
			continue
		}
		targets = append(targets, TargetHitboxes{
			EntityID: id,
			Head:     Hitbox{Center: pos.Add(Vec3{Y: config.HeadHeight}), Radius: config.HeadRadius},
			Body:     Hitbox{Center: pos.Add(Vec3{Y: config.BodyHeight}), Radius: config.BodyRadius},
		})
	}
	return targets
}
