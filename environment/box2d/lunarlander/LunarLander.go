// Package lunarlander provides an implementation of the Lunar Lander
// environment, simulated with Box2D.
package lunarlander

import (
	"fmt"
	"math"

	"github.com/ByteArena/box2d"
	"github.com/samuelfneumann/lunardqn/environment"
	"github.com/samuelfneumann/lunardqn/timestep"
	"github.com/samuelfneumann/lunardqn/utils/floatutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	FPS float64 = 50

	// Affects how fast-paced the game is, forces should be adjusted
	// as well
	Scale float64 = 30.0

	XGravity float64 = 0.0
	YGravity float64 = -10.0

	MainEnginePower float64 = 13.0
	SideEnginePower float64 = 0.6

	LegAway         float64 = 20.0
	LegDown         float64 = 18.0
	LegW            float64 = 2.0
	LegH            float64 = 8.0
	LegSpringTorque float64 = 40.0

	SideEngineHeight float64 = 14.0
	SideEngineAway   float64 = 12.0

	Chunks int = 11

	ViewportW float64 = 600
	ViewportH float64 = 400

	// State observations
	StateObservations int     = 8
	MinAngle          float64 = -math.Pi
	MaxAngle          float64 = math.Pi

	// Box2D limits velocity to 2 units per timestep
	MaxVelocity float64 = 2.0 * FPS
	MinVelocity float64 = -MaxVelocity

	// Default starting values
	InitialX      float64 = ViewportW / Scale / 2
	InitialY      float64 = (ViewportH - ViewportH/25) / Scale
	InitialRandom float64 = 1000.0 // Set 1500 to make game harder
)

// Collision categories
const (
	terrainCategory  = 0x0001
	boundaryCategory = 0x0002
	landerCategory  = 0x0010
	legCategory     = 0x0020
)

// Box2D body types
const (
	staticBody  = 0
	dynamicBody = 2
)

// LanderPoly outlines the hull of the lander in pixels, relative to
// the lander's centre of mass
var LanderPoly = [][2]float64{
	{-14, 17},
	{-17, 0},
	{-17, -10},
	{17, -10},
	{17, 0},
	{14, 17},
}

// lunarLanderTask is a Task which needs access to the underlying
// simulation to compute rewards and episode endings
type lunarLanderTask interface {
	environment.Task
	registerEnv(*lunarLander)
	reset()
}

// contactDetector listens for contacts between the lander and the
// terrain
type contactDetector struct {
	env *lunarLander
}

// between returns whether contact is between bodies a and b
func between(contact box2d.B2ContactInterface, a, b *box2d.B2Body) bool {
	bodyA := contact.GetFixtureA().GetBody()
	bodyB := contact.GetFixtureB().GetBody()
	return (bodyA == a && bodyB == b) || (bodyA == b && bodyB == a)
}

// BeginContact implements the box2d.B2ContactListenerInterface. Only
// contacts with the moon count as touching the ground.
func (c *contactDetector) BeginContact(contact box2d.B2ContactInterface) {
	// The hull should never touch the ground, the ship should be
	// landed gently on its legs.
	if between(contact, c.env.lander, c.env.moon) {
		c.env.gameOver = true
	}

	for i, leg := range c.env.legs {
		if between(contact, leg, c.env.moon) {
			c.env.legContact[i] = true
		}
	}
}

// EndContact implements the box2d.B2ContactListenerInterface
func (c *contactDetector) EndContact(contact box2d.B2ContactInterface) {
	for i, leg := range c.env.legs {
		if between(contact, leg, c.env.moon) {
			c.env.legContact[i] = false
		}
	}
}

// PreSolve implements the box2d.B2ContactListenerInterface
func (c *contactDetector) PreSolve(box2d.B2ContactInterface,
	box2d.B2Manifold) {
}

// PostSolve implements the box2d.B2ContactListenerInterface
func (c *contactDetector) PostSolve(box2d.B2ContactInterface,
	*box2d.B2ContactImpulse) {
}

// lunarLander implements the Box2D simulation of the lunar lander.
// Actions taken by lunarLander are 2-dimensional: the first element
// throttles the main engine and the second element fires the left
// (negative) or right (positive) orientation engine.
type lunarLander struct {
	environment.Task

	world box2d.B2World

	boundary []*box2d.B2Body
	moon     *box2d.B2Body
	terrain  [][2]float64 // Terrain vertices in Box2D units
	lander   *box2d.B2Body
	legs     []*box2d.B2Body

	legContact [2]bool

	helipadX1 float64
	helipadX2 float64
	helipadY  float64

	gameOver bool
	rng      distuv.Uniform

	actionBounds r1.Interval
	angleBounds  r1.Interval

	discount float64
	prevStep timestep.TimeStep
	mPower   float64
	sPower   float64
}

// newLunarLander returns a new lunarLander simulation, reset and ready
// to use, along with its first TimeStep
func newLunarLander(task environment.Task, discount float64,
	seed uint64) (*lunarLander, timestep.TimeStep, error) {
	l := &lunarLander{
		world:        box2d.MakeB2World(box2d.MakeB2Vec2(XGravity, YGravity)),
		rng:          distuv.Uniform{Min: -1.0, Max: 1.0, Src: rand.NewSource(seed)},
		actionBounds: r1.Interval{Min: -1.0, Max: 1.0},
		angleBounds:  r1.Interval{Min: MinAngle, Max: MaxAngle},
		discount:     discount,
	}

	if t, ok := task.(lunarLanderTask); ok {
		t.registerEnv(l)
	}
	l.Task = task

	step, err := l.Reset()
	if err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("newLunarLander: %v", err)
	}
	return l, step, nil
}

// destroy removes all bodies from the Box2D world
func (l *lunarLander) destroy() {
	if l.moon == nil {
		return
	}
	l.world.SetContactListener(nil)

	l.world.DestroyBody(l.moon)
	l.moon = nil

	l.world.DestroyBody(l.lander)
	l.lander = nil

	for _, leg := range l.legs {
		l.world.DestroyBody(leg)
	}
	l.legs = nil

	for _, bound := range l.boundary {
		l.world.DestroyBody(bound)
	}
	l.boundary = nil
}

// Reset resets the environment and returns the first TimeStep of the
// next episode
func (l *lunarLander) Reset() (timestep.TimeStep, error) {
	l.destroy()
	l.world.SetContactListener(&contactDetector{l})
	l.gameOver = false
	l.prevStep = timestep.TimeStep{}
	l.mPower = 0.0
	l.sPower = 0.0
	l.legContact = [2]bool{}

	if t, ok := l.Task.(lunarLanderTask); ok {
		t.reset()
	}

	start := l.Start()
	if err := validateStart(start); err != nil {
		return timestep.TimeStep{}, fmt.Errorf("reset: %v", err)
	}

	W := ViewportW / Scale
	H := ViewportH / Scale

	l.createBoundary(W, H)
	l.createTerrain(W, H)
	l.createLander(start.AtVec(0), start.AtVec(1), start.AtVec(2))

	// Take a no-op step so that the observation is consistent with
	// the simulation
	step, last, err := l.step(mat.NewVecDense(2, nil))
	if err != nil {
		return timestep.TimeStep{}, fmt.Errorf("reset: %v", err)
	}
	if last {
		return timestep.TimeStep{}, fmt.Errorf("reset: environment " +
			"ended as soon as it began")
	}

	step.StepType = timestep.First
	step.Number = 0
	step.Reward = 0.0
	l.prevStep = step

	return step, nil
}

// createBoundary creates the edges of the viewport. The edges are
// drawn but nothing collides with them: leaving the viewport along the
// x axis ends the episode instead.
func (l *lunarLander) createBoundary(W, H float64) {
	corners := [][2]float64{{0, 0}, {0, H}, {W, H}, {W, 0}}

	l.boundary = make([]*box2d.B2Body, len(corners))
	for i := range corners {
		boundsDef := box2d.MakeB2BodyDef()
		boundsDef.Type = staticBody
		l.boundary[i] = l.world.CreateBody(&boundsDef)

		next := corners[(i+1)%len(corners)]
		boundsShape := box2d.NewB2EdgeShape()
		boundsShape.Set(
			box2d.MakeB2Vec2(corners[i][0], corners[i][1]),
			box2d.MakeB2Vec2(next[0], next[1]),
		)

		boundsFix := box2d.MakeB2FixtureDef()
		boundsFix.Shape = boundsShape
		boundsFix.Filter.CategoryBits = boundaryCategory
		boundsFix.Filter.MaskBits = 0
		l.boundary[i].CreateFixtureFromDef(&boundsFix)
	}
}

// createTerrain creates the randomly generated moon surface with a
// flat helipad in the centre
func (l *lunarLander) createTerrain(W, H float64) {
	height := make([]float64, Chunks+1)
	for i := range height {
		height[i] = (l.rng.Rand() + 1.0) / 2.0 * (H / 2.0)
	}

	chunkX := make([]float64, Chunks)
	for i := range chunkX {
		chunkX[i] = float64(i) * W / float64(Chunks-1)
	}

	l.helipadX1 = chunkX[Chunks/2-1]
	l.helipadX2 = chunkX[Chunks/2+1]
	l.helipadY = H / 4
	for i := Chunks/2 - 2; i <= Chunks/2+2; i++ {
		height[i] = l.helipadY
	}

	smoothY := make([]float64, Chunks)
	for i := range smoothY {
		prev := len(height) - 1
		if i > 0 {
			prev = i - 1
		}
		smoothY[i] = 0.33 * (height[prev] + height[i] + height[i+1])
	}

	moonDef := box2d.MakeB2BodyDef()
	moonDef.Type = staticBody
	l.moon = l.world.CreateBody(&moonDef)

	floor := box2d.NewB2EdgeShape()
	floor.Set(box2d.MakeB2Vec2(0.0, 0.0), box2d.MakeB2Vec2(W, 0.0))
	floorFix := box2d.MakeB2FixtureDef()
	floorFix.Shape = floor
	l.moon.CreateFixtureFromDef(&floorFix)

	l.terrain = make([][2]float64, 0, Chunks)
	for i := 0; i < Chunks-1; i++ {
		p1 := box2d.MakeB2Vec2(chunkX[i], smoothY[i])
		p2 := box2d.MakeB2Vec2(chunkX[i+1], smoothY[i+1])

		edge := box2d.NewB2EdgeShape()
		edge.Set(p1, p2)

		edgeFix := box2d.MakeB2FixtureDef()
		edgeFix.Shape = edge
		edgeFix.Density = 0.0
		edgeFix.Friction = 0.1
		l.moon.CreateFixtureFromDef(&edgeFix)

		l.terrain = append(l.terrain, [2]float64{p1.X, p1.Y})
	}
	l.terrain = append(l.terrain, [2]float64{chunkX[Chunks-1],
		smoothY[Chunks-1]})
}

// createLander creates the lander and its legs at (x, y) and pushes it
// with a random force with components in [-force, force]
func (l *lunarLander) createLander(x, y, force float64) {
	landerDef := box2d.MakeB2BodyDef()
	landerDef.Type = dynamicBody
	landerDef.Position = box2d.MakeB2Vec2(x, y)
	landerDef.Angle = 0.0
	l.lander = l.world.CreateBody(&landerDef)

	vertices := make([]box2d.B2Vec2, len(LanderPoly))
	for i, v := range LanderPoly {
		vertices[i] = box2d.MakeB2Vec2(v[0]/Scale, v[1]/Scale)
	}
	hull := box2d.NewB2PolygonShape()
	hull.Set(vertices, len(vertices))

	hullFix := box2d.MakeB2FixtureDef()
	hullFix.Shape = hull
	hullFix.Density = 5.0
	hullFix.Friction = 0.1
	hullFix.Restitution = 0.0
	hullFix.Filter.CategoryBits = landerCategory
	hullFix.Filter.MaskBits = terrainCategory
	l.lander.CreateFixtureFromDef(&hullFix)

	push := box2d.MakeB2Vec2(l.rng.Rand()*force, l.rng.Rand()*force)
	l.lander.ApplyForceToCenter(push, true)

	l.legs = make([]*box2d.B2Body, 0, 2)
	for _, i := range []float64{-1.0, 1.0} {
		legDef := box2d.MakeB2BodyDef()
		legDef.Type = dynamicBody
		legDef.Position = box2d.MakeB2Vec2(x-i*LegAway/Scale, y)
		legDef.Angle = i * 0.05
		leg := l.world.CreateBody(&legDef)

		legShape := box2d.NewB2PolygonShape()
		legShape.SetAsBox(LegW/Scale, LegH/Scale)

		legFix := box2d.MakeB2FixtureDef()
		legFix.Shape = legShape
		legFix.Density = 1.0
		legFix.Restitution = 0.0
		legFix.Filter.CategoryBits = legCategory
		legFix.Filter.MaskBits = terrainCategory
		leg.CreateFixtureFromDef(&legFix)

		rjd := box2d.MakeB2RevoluteJointDef()
		rjd.BodyA = l.lander
		rjd.BodyB = leg
		rjd.LocalAnchorA = box2d.MakeB2Vec2(0.0, 0.0)
		rjd.LocalAnchorB = box2d.MakeB2Vec2(i*LegAway/Scale, LegDown/Scale)
		rjd.EnableMotor = true
		rjd.EnableLimit = true
		rjd.MaxMotorTorque = LegSpringTorque
		rjd.MotorSpeed = 0.3 * i

		if i < 0 {
			rjd.LowerAngle = 0.9 - 0.5
			rjd.UpperAngle = 0.9
		} else {
			rjd.LowerAngle = -0.9
			rjd.UpperAngle = -0.9 + 0.5
		}
		l.world.CreateJoint(&rjd)

		l.legs = append(l.legs, leg)
	}
}

// step takes a single step in the simulation using the continuous
// engine throttles in a.
func (l *lunarLander) step(a *mat.VecDense) (timestep.TimeStep, bool,
	error) {
	if a.Len() != 2 {
		return timestep.TimeStep{}, false, fmt.Errorf("step: actions "+
			"must be 2-dimensional \n\twant(2) \n\thave(%v)", a.Len())
	}
	main := floatutils.ClipInterval(a.AtVec(0), l.actionBounds)
	lateral := floatutils.ClipInterval(a.AtVec(1), l.actionBounds)

	angle := l.lander.GetAngle()
	tip := [2]float64{math.Sin(angle), math.Cos(angle)}
	side := [2]float64{-tip[1], tip[0]}
	dispersion := [2]float64{l.rng.Rand() / Scale, l.rng.Rand() / Scale}
	pos := l.lander.GetPosition()

	// Main engine
	l.mPower = 0.0
	if main > 0.0 {
		// Main engine throttles between 50% and 100% power
		l.mPower = (floatutils.Clip(main, 0.0, 1.0) + 1.0) * 0.5

		ox := tip[0]*(4.0/Scale+2.0*dispersion[0]) + side[0]*dispersion[1]
		oy := -tip[1]*(4.0/Scale+2.0*dispersion[0]) - side[1]*dispersion[1]

		impulsePos := box2d.MakeB2Vec2(pos.X+ox, pos.Y+oy)
		impulse := box2d.MakeB2Vec2(
			-ox*MainEnginePower*l.mPower,
			-oy*MainEnginePower*l.mPower,
		)
		l.lander.ApplyLinearImpulse(impulse, impulsePos, true)
	}

	// Orientation engines
	l.sPower = 0.0
	if math.Abs(lateral) > 0.5 {
		direction := floatutils.Sign(lateral)
		l.sPower = floatutils.Clip(math.Abs(lateral), 0.5, 1.0)

		ox := tip[0]*dispersion[0] + side[0]*(3.0*dispersion[1]+
			direction*SideEngineAway/Scale)
		oy := -tip[1]*dispersion[0] - side[1]*(3.0*dispersion[1]+
			direction*SideEngineAway/Scale)

		impulsePos := box2d.MakeB2Vec2(
			pos.X+ox-tip[0]*17.0/Scale,
			pos.Y+oy+tip[1]*SideEngineHeight/Scale,
		)
		impulse := box2d.MakeB2Vec2(
			-ox*SideEnginePower*l.sPower,
			-oy*SideEnginePower*l.sPower,
		)
		l.lander.ApplyLinearImpulse(impulse, impulsePos, true)
	}

	l.world.Step(1.0/FPS, 6*int(Scale), 2*int(Scale))

	stateVec := l.observe()
	var prevObs mat.Vector = stateVec
	if l.prevStep.Observation != nil {
		prevObs = l.prevStep.Observation
	}
	reward := l.GetReward(prevObs, a, stateVec)

	t := timestep.New(timestep.Mid, reward, l.discount, stateVec,
		l.prevStep.Number+1)
	l.End(&t)
	l.prevStep = t

	return t, t.Last(), nil
}

// observe constructs the state observation from the simulation
func (l *lunarLander) observe() *mat.VecDense {
	pos := l.lander.GetPosition()
	vel := l.lander.GetLinearVelocity()

	var leg1, leg2 float64
	if l.legContact[0] {
		leg1 = 1.0
	}
	if l.legContact[1] {
		leg2 = 1.0
	}

	state := []float64{
		(pos.X - ViewportW/Scale/2.0) / (ViewportW / Scale / 2.0),
		(pos.Y - (l.helipadY + LegDown/Scale)) / (ViewportH / Scale / 2.0),
		vel.X * (ViewportW / Scale / 2.0) / FPS,
		vel.Y * (ViewportH / Scale / 2.0) / FPS,
		floatutils.Wrap(l.lander.GetAngle(), l.angleBounds.Min,
			l.angleBounds.Max),
		20.0 * l.lander.GetAngularVelocity() / FPS,
		leg1,
		leg2,
	}

	return mat.NewVecDense(StateObservations, state)
}

// MPower returns the main engine power used on the last step
func (l *lunarLander) MPower() float64 {
	return l.mPower
}

// SPower returns the orientation engine power used on the last step
func (l *lunarLander) SPower() float64 {
	return l.sPower
}

// IsAwake returns whether the lander is still moving. Box2D puts
// bodies at rest to sleep.
func (l *lunarLander) IsAwake() bool {
	return l.lander.IsAwake()
}

// GroundContact returns whether each leg is touching the ground
func (l *lunarLander) GroundContact() (bool, bool) {
	return l.legContact[0], l.legContact[1]
}

// IsGameOver returns whether the lander hull touched the ground
func (l *lunarLander) IsGameOver() bool {
	return l.gameOver
}

// Helipad returns the x extent and the height of the landing pad in
// Box2D units
func (l *lunarLander) Helipad() (x1, x2, y float64) {
	return l.helipadX1, l.helipadX2, l.helipadY
}

// LastTimeStep returns the last TimeStep that occurred in the
// environment
func (l *lunarLander) LastTimeStep() timestep.TimeStep {
	return l.prevStep
}

// DiscountSpec returns the discount specification of the environment
func (l *lunarLander) DiscountSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)
	bound := mat.NewVecDense(1, []float64{l.discount})

	return environment.NewSpec(shape, environment.Discount, bound, bound,
		environment.Continuous)
}

// ObservationSpec returns the observation specification of the
// environment
func (l *lunarLander) ObservationSpec() environment.Spec {
	shape := mat.NewVecDense(StateObservations, nil)

	// Velocities are in observation units, Box2D velocity limits are
	// scaled in the same way as the observation
	vx := MaxVelocity * (ViewportW / Scale / 2.0) / FPS
	vy := MaxVelocity * (ViewportH / Scale / 2.0) / FPS
	omega := 20.0 * MaxVelocity / FPS

	lowerBound := mat.NewVecDense(StateObservations, []float64{
		-1., -1., -vx, -vy, l.angleBounds.Min, -omega, 0., 0.,
	})
	upperBound := mat.NewVecDense(StateObservations, []float64{
		1., 2., vx, vy, l.angleBounds.Max, omega, 1., 1.,
	})

	return environment.NewSpec(shape, environment.Observation, lowerBound,
		upperBound, environment.Continuous)
}

// validateStart checks that a starting state sampled by a Starter is
// legal
func validateStart(start *mat.VecDense) error {
	if start.Len() != 3 {
		return fmt.Errorf("starting values should be 3-dimensional "+
			"\n\twant(3) \n\thave(%v)", start.Len())
	}

	minX, maxX := 0.05*ViewportW/Scale, 0.95*ViewportW/Scale
	if x := start.AtVec(0); x > maxX || x < minX {
		return fmt.Errorf("x position out of bounds, expected x ϵ [%v, %v] "+
			"but got x = %v", minX, maxX, x)
	}

	minY, maxY := ViewportH/Scale/2, InitialY
	if y := start.AtVec(1); y > maxY || y < minY {
		return fmt.Errorf("y position out of bounds, expected y ϵ [%v, %v] "+
			"but got y = %v", minY, maxY, y)
	}

	return nil
}
