package publish

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/flock/components"
	"github.com/pthm-cable/flock/geom"
)

// Entities keeps one ECS entity per agent and writes each agent's
// transform onto its own scene object.
type Entities struct {
	world *ecs.World

	mapper       *ecs.Map2[components.Transform, components.Agent]
	transformMap *ecs.Map1[components.Transform]
	filter       *ecs.Filter2[components.Transform, components.Agent]

	// entities[i] is the object for agent i.
	entities []ecs.Entity
	center   geom.Vec3
}

// NewEntities creates a world with count agent entities.
func NewEntities(count int) *Entities {
	world := ecs.NewWorld()
	p := &Entities{
		world:        world,
		mapper:       ecs.NewMap2[components.Transform, components.Agent](world),
		transformMap: ecs.NewMap1[components.Transform](world),
		filter:       ecs.NewFilter2[components.Transform, components.Agent](world),
		entities:     make([]ecs.Entity, count),
	}

	identity := geom.Identity()
	for i := range p.entities {
		var t components.Transform
		t.Set(&identity)
		a := components.Agent{Index: i}
		p.entities[i] = p.mapper.NewEntity(&t, &a)
	}
	return p
}

func (p *Entities) Name() string { return BackendEntities }

// Publish writes every agent's transform onto its entity.
func (p *Entities) Publish(current []geom.Mat4, center geom.Vec3) error {
	if err := checkSize(len(p.entities), len(current)); err != nil {
		return err
	}
	for i, e := range p.entities {
		p.transformMap.Get(e).Set(&current[i])
	}
	p.center = center
	return nil
}

// Transform returns the scene object transform of agent i.
func (p *Entities) Transform(i int) *components.Transform {
	return p.transformMap.Get(p.entities[i])
}

// Each visits every agent object. Iteration order is unspecified.
func (p *Entities) Each(fn func(agent int, t *components.Transform)) {
	query := p.filter.Query()
	for query.Next() {
		t, a := query.Get()
		fn(a.Index, t)
	}
}

// Len returns the number of live agent objects.
func (p *Entities) Len() int {
	n := 0
	for _, e := range p.entities {
		if p.world.Alive(e) {
			n++
		}
	}
	return n
}

// Center returns the center handed over with the last publish.
func (p *Entities) Center() geom.Vec3 { return p.center }

// Close removes every agent object from the world.
func (p *Entities) Close() error {
	for _, e := range p.entities {
		if p.world.Alive(e) {
			p.mapper.Remove(e)
		}
	}
	p.entities = nil
	return nil
}
