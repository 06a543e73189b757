package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Projection selects how a camera maps view space to clip space.
type Projection int

const (
	ProjectionPerspective Projection = iota
	ProjectionOrthographic
)

type cameraImpl struct {
	mu *sync.Mutex

	up mgl32.Vec3

	projection  Projection
	fov         float32
	orthoHeight float32
	width       float32
	height      float32
	near        float32
	depth       float32

	controller CameraController
}

// Camera defines the interface for the camera system.
// The camera holds projection settings and reads its position and target from an attached
// CameraController. Matrices are computed on demand, so a camera is always current.
type Camera interface {
	// Kind returns the projection kind.
	//
	// Returns:
	//   - Projection: perspective or orthographic
	Kind() Projection

	// Fov returns the vertical field of view in degrees.
	//
	// Returns:
	//   - float32: the field of view in degrees
	Fov() float32

	// OrthoHeight returns the height of the orthographic view volume in world units.
	//
	// Returns:
	//   - float32: the view volume height
	OrthoHeight() float32

	// Size returns the viewport size the aspect ratio is derived from.
	//
	// Returns:
	//   - width, height: the viewport size in pixels
	Size() (width, height float32)

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Depth returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Depth() float32

	// Position returns the world-space eye position.
	//
	// Returns:
	//   - mgl32.Vec3: the eye position
	Position() mgl32.Vec3

	// View returns the world-to-view matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	View() mgl32.Mat4

	// Projection returns the view-to-clip matrix over [Near, Depth].
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	Projection() mgl32.Mat4

	// ProjectionTo returns the view-to-clip matrix with the far plane moved to depth.
	// The shadow renderer uses it to clip the camera to the shadow distance.
	//
	// Parameters:
	//   - depth: the far plane distance to use
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	ProjectionTo(depth float32) mgl32.Mat4

	// Controller returns the attached CameraController.
	//
	// Returns:
	//   - CameraController: the attached controller
	Controller() CameraController

	// SetUp sets the camera's up vector.
	SetUp(up mgl32.Vec3)

	// SetPerspective switches to a perspective projection.
	//
	// Parameters:
	//   - fov: vertical field of view in degrees
	SetPerspective(fov float32)

	// SetOrthographic switches to an orthographic projection.
	//
	// Parameters:
	//   - height: the view volume height in world units
	SetOrthographic(height float32)

	// SetSize sets the viewport size. Zero sizes are ignored so a minimized window keeps the
	// last aspect ratio.
	//
	// Parameters:
	//   - width, height: the viewport size in pixels
	SetSize(width, height float32)

	// SetNear sets the near clipping plane distance.
	SetNear(near float32)

	// SetDepth sets the far clipping plane distance.
	SetDepth(depth float32)

	// SetController attaches a CameraController to the camera.
	//
	// Parameters:
	//   - ctrl: the controller to attach
	SetController(ctrl CameraController)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a perspective Camera with a 60 degree field of view over [0.1, 100].
// When no controller is given an orbit controller around the origin is attached.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:          &sync.Mutex{},
		up:          common.Up,
		projection:  ProjectionPerspective,
		fov:         60,
		orthoHeight: 10,
		width:       800,
		height:      600,
		near:        0.1,
		depth:       100,
	}
	for _, option := range options {
		option(c)
	}
	if c.controller == nil {
		c.controller = NewCameraController()
	}
	return c
}

func (c *cameraImpl) Kind() Projection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) OrthoHeight() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orthoHeight
}

func (c *cameraImpl) Size() (float32, float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width / c.height
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Depth() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.depth
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	return c.Controller().Position()
}

func (c *cameraImpl) View() mgl32.Mat4 {
	ctrl := c.Controller()
	c.mu.Lock()
	up := c.up
	c.mu.Unlock()
	position, target := ctrl.Position(), ctrl.Target()
	return common.LookRotation(position, target.Sub(position), up)
}

func (c *cameraImpl) Projection() mgl32.Mat4 {
	return c.ProjectionTo(c.Depth())
}

func (c *cameraImpl) ProjectionTo(depth float32) mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	aspect := c.width / c.height
	if c.projection == ProjectionOrthographic {
		return common.OrthographicZO(c.orthoHeight*aspect, c.orthoHeight, c.near, depth)
	}
	return common.PerspectiveZO(mgl32.DegToRad(c.fov), aspect, c.near, depth)
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) SetUp(up mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = up
}

func (c *cameraImpl) SetPerspective(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projection = ProjectionPerspective
	c.fov = fov
}

func (c *cameraImpl) SetOrthographic(height float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projection = ProjectionOrthographic
	c.orthoHeight = height
}

func (c *cameraImpl) SetSize(width, height float32) {
	if width <= 0 || height <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = width, height
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
}

func (c *cameraImpl) SetDepth(depth float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.depth = depth
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
}
