package main

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/lixenwraith/dynecs/bridge"
	"github.com/lixenwraith/dynecs/component"
	"github.com/lixenwraith/dynecs/core"
	"github.com/lixenwraith/dynecs/engine"
	"github.com/lixenwraith/dynecs/query"
	"github.com/lixenwraith/dynecs/registry"
)

// TickDuration is the simulated time one step advances timers by
const TickDuration = 250 * time.Millisecond

// Bounds is the playfield size, stored as a world resource
type Bounds struct {
	Width  int
	Height int
}

// Sim owns the world, the built-in systems and the scenario's named queries
type Sim struct {
	world    *engine.World
	scenario *Scenario
	rng      *rand.Rand
	logger   *core.Logger
	bridge   *bridge.Bridge
	script   []ScriptOp

	position core.ComponentID
	kinetic  core.ComponentID
	glyph    core.ComponentID
	timer    core.ComponentID
	marker   core.ComponentID

	mover  *query.DynamicQuery
	timers *query.DynamicQuery
	glyphs *query.DynamicQuery
	named  []*query.DynamicQuery

	steps   int
	expired int
	opLog   []OpResult
}

// NewSim registers the catalogue, populates the world and builds every query
func NewSim(w *engine.World, s *Scenario) (*Sim, error) {
	if err := s.Register(w.Components()); err != nil {
		return nil, err
	}

	sim := &Sim{
		world:    w,
		scenario: s,
		rng:      rand.New(rand.NewSource(s.Seed)),
		logger:   &core.Logger{Logger: w.Logger().With("component", "sandbox")},
		bridge:   bridge.New(w),
	}
	engine.AddResource(w.Resources, &Bounds{Width: s.Width, Height: s.Height})
	c := w.Components()
	sim.position, _ = registry.IDFor[component.PositionComponent](c)
	sim.kinetic, _ = registry.IDFor[component.KineticComponent](c)
	sim.glyph, _ = registry.IDFor[component.GlyphComponent](c)
	sim.timer, _ = registry.IDFor[component.TimerComponent](c)
	sim.marker, _ = registry.IDFor[component.MarkerComponent](c)

	spawned, err := s.Populate(w)
	if err != nil {
		return nil, err
	}
	sim.logger.Info("scenario populated", "entities", len(spawned), "archetypes", w.Archetypes().Len())

	if sim.mover, err = query.New(w,
		[]query.FetchRequest{query.WriteOf(sim.position), query.WriteOf(sim.kinetic)}, nil,
		query.WithName("mover")); err != nil {
		return nil, errors.Wrap(err, "mover query")
	}
	if sim.timers, err = query.New(w,
		[]query.FetchRequest{query.WriteOf(sim.timer)}, nil,
		query.WithName("timers")); err != nil {
		return nil, errors.Wrap(err, "timer query")
	}
	if sim.glyphs, err = query.New(w,
		[]query.FetchRequest{query.ReadOf(sim.position), query.ReadOf(sim.glyph)}, nil,
		query.WithName("glyphs")); err != nil {
		return nil, errors.Wrap(err, "glyph query")
	}
	if sim.named, err = s.BuildQueries(w); err != nil {
		return nil, err
	}
	return sim, nil
}

// SetScript installs bridge ops to run after the systems of each step
func (s *Sim) SetScript(ops []ScriptOp) {
	s.script = ops
}

// Step runs the systems and scripted ops at the current tick; callers read query results before Advance
func (s *Sim) Step() {
	s.steps++
	s.move()
	s.countdown()
	s.runScript()
}

// runScript executes this step's ops; op failures are recorded, not fatal
func (s *Sim) runScript() {
	s.opLog = nil
	for _, op := range s.script {
		if op.Step != 0 && op.Step != s.steps {
			continue
		}
		res := OpResult{Step: s.steps, Op: op.Op}
		out, err := s.bridge.Call(op.Op, op.Args)
		if err != nil {
			res.Error = err.Error()
			s.logger.Warn("op failed", "step", s.steps, "op", op.Op, "error", err)
		} else {
			res.Result = out
			s.logger.Debug("op", "step", s.steps, "op", op.Op, "result", string(out))
		}
		s.opLog = append(s.opLog, res)
	}
}

// OpResults returns the ops run by the last step
func (s *Sim) OpResults() []OpResult {
	return s.opLog
}

// Advance ends the frame: value refs handed to scripts are freed and the change window closes
func (s *Sim) Advance() {
	s.bridge.EndFrame()
	s.world.ClearTrackers()
	s.world.CheckChangeTicks()
}

// move integrates Q16.16 velocity into grid position, bouncing off the edges
func (s *Sim) move() {
	bounds := engine.MustGetResource[*Bounds](s.world.Resources)
	width, height := bounds.Width, bounds.Height
	for _, res := range s.mover.Each(s.world) {
		pos := query.Mut[component.PositionComponent](res[0])
		kin := query.Mut[component.KineticComponent](res[1])

		kin.RemX += kin.VelX
		kin.RemY += kin.VelY
		kin.VelX += kin.AccelX
		kin.VelY += kin.AccelY

		dx, dy := kin.RemX>>16, kin.RemY>>16
		kin.RemX -= dx << 16
		kin.RemY -= dy << 16
		pos.X += int(dx)
		pos.Y += int(dy)

		if pos.X < 0 {
			pos.X, kin.VelX = 0, -kin.VelX
		} else if pos.X >= width {
			pos.X, kin.VelX = width-1, -kin.VelX
		}
		if pos.Y < 0 {
			pos.Y, kin.VelY = 0, -kin.VelY
		} else if pos.Y >= height {
			pos.Y, kin.VelY = height-1, -kin.VelY
		}
	}
}

// countdown decrements timers and despawns the expired ones after the pass
func (s *Sim) countdown() {
	var done []core.Entity
	for e, res := range s.timers.Each(s.world) {
		t := query.Mut[component.TimerComponent](res[0])
		t.Remaining -= TickDuration
		if t.Expired() {
			done = append(done, e)
		}
	}
	for _, e := range done {
		if err := s.world.Despawn(e); err != nil {
			s.logger.Warn("despawn expired", "entity", e, "error", err)
			continue
		}
		s.expired++
	}
}

// SpawnRandom adds a moving glyph at a random cell
func (s *Sim) SpawnRandom() core.Entity {
	bounds := engine.MustGetResource[*Bounds](s.world.Resources)
	e := s.world.NewEntity().
		With(component.PositionComponent{X: s.rng.Intn(bounds.Width), Y: s.rng.Intn(bounds.Height)}).
		With(component.KineticComponent{
			VelX: s.rng.Int31n(2*component.FixedOne) - component.FixedOne,
			VelY: s.rng.Int31n(component.FixedOne) - component.FixedOne/2,
		}).
		With(component.GlyphComponent{
			Rune:  rune('a' + s.rng.Intn(26)),
			Type:  component.GlyphType(s.rng.Intn(4)),
			Level: component.GlyphBright,
		}).
		WithIf(s.rng.Intn(4) == 0, component.ShieldComponent{Active: true, RadiusX: 1, RadiusY: 1}).
		Build()
	s.logger.Debug("spawned", "entity", e)
	return e
}

// ToggleMarker adds or removes the sparse marker on a random live entity
func (s *Sim) ToggleMarker() (core.Entity, bool) {
	entities := s.world.Entities()
	if len(entities) == 0 {
		return core.Entity(0), false
	}
	e := entities[s.rng.Intn(len(entities))]
	if s.world.Has(e, s.marker) {
		if err := s.world.Remove(e, s.marker); err != nil {
			s.logger.Warn("remove marker", "entity", e, "error", err)
			return e, false
		}
		return e, true
	}
	marker := component.MarkerComponent{Width: 3, Height: 1, Shape: component.MarkerShapeRectangle}
	if err := s.world.InsertByID(e, s.marker, marker); err != nil {
		s.logger.Warn("insert marker", "entity", e, "error", err)
		return e, false
	}
	return e, true
}

// Cell is one drawable glyph
type Cell struct {
	X, Y  int
	Glyph component.GlyphComponent
}

// Cells collects every positioned glyph
func (s *Sim) Cells() []Cell {
	var cells []Cell
	for _, res := range s.glyphs.Each(s.world) {
		pos := query.Ref[component.PositionComponent](res[0])
		cells = append(cells, Cell{X: pos.X, Y: pos.Y, Glyph: query.Ref[component.GlyphComponent](res[1])})
	}
	return cells
}

// QueryView summarises one named query for display
type QueryView struct {
	Name       string
	Descriptor string
	Dense      bool
	Archetypes int
	Entities   []core.Entity
}

// Views runs every named query once
func (s *Sim) Views() []QueryView {
	views := make([]QueryView, 0, len(s.named))
	for _, q := range s.named {
		v := QueryView{
			Name:       q.Name(),
			Descriptor: q.Descriptor().String(),
			Dense:      q.IsDense(),
		}
		for e := range q.Each(s.world) {
			v.Entities = append(v.Entities, e)
		}
		v.Archetypes = len(q.MatchedArchetypes())
		views = append(views, v)
	}
	return views
}
