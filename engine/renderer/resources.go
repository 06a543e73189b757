package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/font"
	"github.com/Carmen-Shannon/oxy-forward/engine/logger"
	"github.com/Carmen-Shannon/oxy-forward/engine/material"
	"github.com/Carmen-Shannon/oxy-forward/engine/mesh"
	"github.com/Carmen-Shannon/oxy-forward/engine/resource"
	"github.com/Carmen-Shannon/oxy-forward/engine/shader"
	"github.com/Carmen-Shannon/oxy-forward/engine/target"
)

// Resources holds the stores every rendered resource lives in, plus the builtin resources
// targets fall back to. Handles inserted by the application are swept and synced with the
// builtins once per frame.
type Resources struct {
	Shaders   *resource.Store[shader.Shader]
	Materials *resource.Store[material.Material]
	Textures  *resource.Store[material.Texture]
	Meshes    *resource.Store[mesh.Mesh]

	builtins target.Builtins
	skybox   resource.Handle[shader.Shader]
	shape    resource.Handle[shader.Shader]
	text     resource.Handle[shader.Shader]
	fonts    map[font.Font]resource.Handle[material.Material]

	// sky is the material of the most recent skybox texture.
	sky struct {
		texture  resource.Handle[material.Texture]
		material resource.Handle[material.Material]
	}
}

// newResources creates the stores and compiles the builtin shaders, materials and meshes.
func newResources(b device.Backend) (*Resources, error) {
	r := &Resources{
		Shaders:   resource.NewStore[shader.Shader]("shader"),
		Materials: resource.NewStore[material.Material]("material"),
		Textures:  resource.NewStore[material.Texture]("texture"),
		Meshes:    resource.NewStore[mesh.Mesh]("mesh"),
		fonts:     make(map[font.Font]resource.Handle[material.Material]),
	}

	shaders := []struct {
		k shader.Builtin
		h *resource.Handle[shader.Shader]
	}{
		{shader.BuiltinPhong, &r.builtins.Phong},
		{shader.BuiltinLine, &r.builtins.Line},
		{shader.BuiltinSkybox, &r.skybox},
		{shader.BuiltinShape, &r.shape},
		{shader.BuiltinText, &r.text},
	}
	for _, bs := range shaders {
		s, err := shader.NewBuiltin(b, bs.k)
		if err != nil {
			r.discard(b)
			return nil, fmt.Errorf("renderer: builtin %s shader: %w", bs.k, err)
		}
		*bs.h = r.Shaders.Insert(s)
	}

	white, err := r.NewTexture(b, "white", material.Solid(common.White))
	if err != nil {
		r.discard(b)
		return nil, fmt.Errorf("renderer: builtin texture: %w", err)
	}
	m, err := material.NewMaterial(b, white, material.WithLabel("white"))
	white.Release()
	if err != nil {
		r.discard(b)
		return nil, fmt.Errorf("renderer: builtin material: %w", err)
	}
	r.builtins.White = r.Materials.Insert(m)

	meshes := []struct {
		label string
		g     mesh.Geometry
		h     *resource.Handle[mesh.Mesh]
	}{
		{"cube", mesh.Cube(), &r.builtins.Cube},
		{"sphere", mesh.Sphere(32, 16), &r.builtins.Sphere},
		{"surface", mesh.Surface(), &r.builtins.Surface},
		{"grid", mesh.Grid(20), &r.builtins.Grid},
	}
	for _, bm := range meshes {
		h, err := r.NewMesh(b, bm.g, mesh.WithLabel(bm.label))
		if err != nil {
			r.discard(b)
			return nil, fmt.Errorf("renderer: builtin %s mesh: %w", bm.label, err)
		}
		*bm.h = h
	}
	r.builtins.Font = font.Builtin()
	return r, nil
}

// Builtins returns the default resources handed to every target.
func (r *Resources) Builtins() target.Builtins {
	return r.builtins
}

// NewTexture uploads staging and stores the texture.
//
// Parameters:
//   - b: the backend to create the image on
//   - label: the debug label
//   - staging: the RGBA pixels
//
// Returns:
//   - resource.Handle[material.Texture]: the first handle to the texture
//   - error: an error if the image could not be created
func (r *Resources) NewTexture(b device.Backend, label string, staging common.TextureStagingData) (resource.Handle[material.Texture], error) {
	t, err := material.NewTexture(b, label, staging)
	if err != nil {
		return resource.Handle[material.Texture]{}, err
	}
	return r.Textures.Insert(t), nil
}

// NewMaterial creates a material sampling albedo and stores it. albedo is cloned.
func (r *Resources) NewMaterial(b device.Backend, albedo resource.Handle[material.Texture], options ...material.MaterialBuilderOption) (resource.Handle[material.Material], error) {
	m, err := material.NewMaterial(b, albedo, options...)
	if err != nil {
		return resource.Handle[material.Material]{}, err
	}
	return r.Materials.Insert(m), nil
}

// NewMesh uploads g and stores the mesh.
func (r *Resources) NewMesh(b device.Backend, g mesh.Geometry, options ...mesh.MeshBuilderOption) (resource.Handle[mesh.Mesh], error) {
	m, err := mesh.New(b, g, options...)
	if err != nil {
		return resource.Handle[mesh.Mesh]{}, err
	}
	return r.Meshes.Insert(m), nil
}

// NewShader compiles annotated WGSL source and stores the shader.
func (r *Resources) NewShader(b device.Backend, source string, options ...shader.ShaderBuilderOption) (resource.Handle[shader.Shader], error) {
	s, err := shader.New(b, source, options...)
	if err != nil {
		return resource.Handle[shader.Shader]{}, err
	}
	return r.Shaders.Insert(s), nil
}

// fontMaterial returns the material sampling f's atlas, uploading the atlas on first use.
func (r *Resources) fontMaterial(b device.Backend, f font.Font) (resource.Handle[material.Material], error) {
	if h, ok := r.fonts[f]; ok {
		return h, nil
	}
	atlas, err := r.NewTexture(b, "font "+f.Name(), f.Atlas())
	if err != nil {
		return resource.Handle[material.Material]{}, fmt.Errorf("renderer: font %s atlas: %w", f.Name(), err)
	}
	h, err := r.NewMaterial(b, atlas, material.WithLabel("font "+f.Name()))
	atlas.Release()
	if err != nil {
		return resource.Handle[material.Material]{}, fmt.Errorf("renderer: font %s material: %w", f.Name(), err)
	}
	r.fonts[f] = h
	logger.Logger().Debug("font atlas uploaded", "font", f.Name())
	return h, nil
}

// skyboxMaterial returns the material sampling tex for the skybox. Only the latest skybox
// texture keeps a material. Switching textures releases the previous one, and sweep drops
// it once nothing else holds the texture.
func (r *Resources) skyboxMaterial(b device.Backend, tex resource.Handle[material.Texture]) (resource.Handle[material.Material], error) {
	if r.sky.texture == tex && !r.sky.material.IsZero() {
		return r.sky.material, nil
	}
	h, err := r.NewMaterial(b, tex, material.WithLabel("skybox "+tex.Get().Label()))
	if err != nil {
		return resource.Handle[material.Material]{}, fmt.Errorf("renderer: skybox material: %w", err)
	}
	if !r.sky.material.IsZero() {
		r.sky.material.Release()
	}
	r.sky.texture, r.sky.material = tex, h
	logger.Logger().Debug("skybox texture bound", "texture", tex.Get().Label())
	return h, nil
}

// dropSkybox releases the skybox material and with it the material's hold on the texture.
func (r *Resources) dropSkybox() {
	if !r.sky.material.IsZero() {
		r.sky.material.Release()
	}
	r.sky.texture, r.sky.material = resource.Handle[material.Texture]{}, resource.Handle[material.Material]{}
}

// sweep retires every released resource into d. Materials go first so the textures they
// release are retired in the same frame.
func (r *Resources) sweep(d device.Destroyer) int {
	if !r.sky.material.IsZero() && r.sky.texture.Refs() == 1 {
		r.dropSkybox()
	}
	retired := 0
	for _, s := range []resource.Sweeper{r.Materials, r.Textures, r.Meshes, r.Shaders} {
		retired += s.Sweep(d)
	}
	return retired
}

// sync re-uploads mutated resources, then rebinds the materials of groups whose albedo image
// was replaced. Textures go before materials so a rebind sees the new image.
func (r *Resources) sync(b device.Backend, d device.Destroyer, groups []target.ShaderGroup) error {
	for _, s := range []resource.Sweeper{r.Textures, r.Materials, r.Meshes, r.Shaders} {
		if err := s.Sync(b, d); err != nil {
			return fmt.Errorf("renderer: %w", err)
		}
	}
	refresh := func(h resource.Handle[material.Material]) error {
		if err := h.Get().Refresh(b, d); err != nil {
			return fmt.Errorf("renderer: %w", err)
		}
		return nil
	}
	if err := refresh(r.builtins.White); err != nil {
		return err
	}
	for _, h := range r.fonts {
		if err := refresh(h); err != nil {
			return err
		}
	}
	if !r.sky.material.IsZero() {
		if err := refresh(r.sky.material); err != nil {
			return err
		}
	}
	for _, sg := range groups {
		for _, mg := range sg.Materials {
			if err := refresh(mg.Material); err != nil {
				return err
			}
		}
	}
	return nil
}

// discard releases the builtins of a renderer that failed to start and destroys them at once.
func (r *Resources) discard(d device.Destroyer) {
	r.release()
	r.sweep(d)
}

// release drops the handles owned by the renderer. The next sweep retires them.
func (r *Resources) release() {
	for _, h := range []resource.Handle[shader.Shader]{r.builtins.Phong, r.builtins.Line, r.skybox, r.shape, r.text} {
		if !h.IsZero() {
			h.Release()
		}
	}
	if !r.builtins.White.IsZero() {
		r.builtins.White.Release()
	}
	for _, h := range []resource.Handle[mesh.Mesh]{r.builtins.Cube, r.builtins.Sphere, r.builtins.Surface, r.builtins.Grid} {
		if !h.IsZero() {
			h.Release()
		}
	}
	for f, h := range r.fonts {
		h.Release()
		delete(r.fonts, f)
	}
	r.dropSkybox()
	r.builtins = target.Builtins{}
	r.skybox, r.shape, r.text = resource.Handle[shader.Shader]{}, resource.Handle[shader.Shader]{}, resource.Handle[shader.Shader]{}
}
