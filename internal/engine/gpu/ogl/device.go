// Package ogl implements the gpu.Device interface on OpenGL 4.1 core.
package ogl

import (
	"fmt"
	"strings"
	"unsafe"

	"go.uber.org/zap"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/fairhill1/gameEngine-sub001/internal/engine/gpu"
	"github.com/fairhill1/gameEngine-sub001/internal/logger"
	"github.com/fairhill1/gameEngine-sub001/pkg/math"
)

// instanceBaseLocation is the first attribute location used for the
// per-instance transform matrix (columns occupy four consecutive locations).
const instanceBaseLocation = 5

// Device is an OpenGL-backed gpu.Device.
// IMPORTANT: New must be called AFTER the OpenGL context is created.
type Device struct {
	program uint32

	locModel      int32
	locView       int32
	locProjection int32
	locTexture    int32

	nextHandle uint32
	buffers    map[gpu.BufferHandle]bufferEntry
	textures   map[gpu.TextureHandle]uint32

	boundVAO uint32
}

type bufferEntry struct {
	vao uint32 // zero for index and instance buffers
	vbo uint32
}

// New initializes OpenGL and compiles the model shader.
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	version := gl.GoStr(gl.GetString(gl.VERSION))
	rendererName := gl.GoStr(gl.GetString(gl.RENDERER))
	logger.Info("OpenGL initialized",
		zap.String("version", version),
		zap.String("renderer", rendererName),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.ClearColor(0.1, 0.1, 0.15, 1.0)

	d := &Device{
		buffers:  make(map[gpu.BufferHandle]bufferEntry),
		textures: make(map[gpu.TextureHandle]uint32),
	}

	var err error
	d.program, err = createProgram()
	if err != nil {
		return nil, fmt.Errorf("failed to create shader program: %w", err)
	}

	d.locModel = gl.GetUniformLocation(d.program, gl.Str("uModel\x00"))
	d.locView = gl.GetUniformLocation(d.program, gl.Str("uView\x00"))
	d.locProjection = gl.GetUniformLocation(d.program, gl.Str("uProjection\x00"))
	d.locTexture = gl.GetUniformLocation(d.program, gl.Str("uTexture\x00"))

	return d, nil
}

// Close releases every live handle and the shader program.
func (d *Device) Close() {
	logger.Info("closing GL device",
		zap.Int("buffers", len(d.buffers)),
		zap.Int("textures", len(d.textures)),
	)
	for h := range d.buffers {
		d.DestroyBuffer(h)
	}
	for h := range d.textures {
		d.DestroyTexture(h)
	}
	if d.program != 0 {
		gl.DeleteProgram(d.program)
		d.program = 0
	}
}

// BeginFrame clears the framebuffer for a new frame.
func (d *Device) BeginFrame() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Resize updates the viewport.
func (d *Device) Resize(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

// SetCamera sets the view and projection matrices for subsequent draws.
func (d *Device) SetCamera(view, projection math.Mat4) {
	gl.UseProgram(d.program)
	gl.UniformMatrix4fv(d.locView, 1, false, view.Ptr())
	gl.UniformMatrix4fv(d.locProjection, 1, false, projection.Ptr())
}

// CreateVertexBuffer uploads packed vertex data and records its layout in a
// vertex array object.
func (d *Device) CreateVertexBuffer(data []byte, layout gpu.VertexLayout) (gpu.BufferHandle, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("empty vertex data")
	}

	var vao, vbo uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)

	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data), unsafe.Pointer(&data[0]), gl.STATIC_DRAW)

	for _, a := range layout.Attribs {
		gl.EnableVertexAttribArray(uint32(a.Location))
		gl.VertexAttribPointerWithOffset(
			uint32(a.Location),
			int32(a.Size),
			glAttribType(a.Type),
			a.Normalized,
			int32(layout.Stride),
			uintptr(a.Offset),
		)
	}

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	h := d.newHandle()
	d.buffers[gpu.BufferHandle(h)] = bufferEntry{vao: vao, vbo: vbo}
	return gpu.BufferHandle(h), nil
}

// CreateIndexBuffer uploads 16-bit index data.
func (d *Device) CreateIndexBuffer(data []byte) (gpu.BufferHandle, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("empty index data")
	}

	var ebo uint32
	gl.GenBuffers(1, &ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(data), unsafe.Pointer(&data[0]), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)

	h := d.newHandle()
	d.buffers[gpu.BufferHandle(h)] = bufferEntry{vbo: ebo}
	return gpu.BufferHandle(h), nil
}

// CreateTexture uploads RGBA pixel data as a 2D texture.
func (d *Device) CreateTexture(width, height int, format gpu.TextureFormat, pixels []byte) (gpu.TextureHandle, error) {
	if format != gpu.TextureRGBA8 {
		return 0, fmt.Errorf("unsupported texture format %d", format)
	}
	if len(pixels) < width*height*4 {
		return 0, fmt.Errorf("texture pixel data too short: %d bytes for %dx%d", len(pixels), width, height)
	}

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&pixels[0]))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	h := d.newHandle()
	d.textures[gpu.TextureHandle(h)] = tex
	return gpu.TextureHandle(h), nil
}

// DestroyBuffer releases a vertex or index buffer.
func (d *Device) DestroyBuffer(h gpu.BufferHandle) {
	entry, ok := d.buffers[h]
	if !ok {
		return
	}
	if entry.vao != 0 {
		gl.DeleteVertexArrays(1, &entry.vao)
	}
	if entry.vbo != 0 {
		gl.DeleteBuffers(1, &entry.vbo)
	}
	delete(d.buffers, h)
}

// DestroyTexture releases a texture.
func (d *Device) DestroyTexture(h gpu.TextureHandle) {
	tex, ok := d.textures[h]
	if !ok {
		return
	}
	gl.DeleteTextures(1, &tex)
	delete(d.textures, h)
}

// SetTransform sets the model matrix for subsequent draws.
func (d *Device) SetTransform(m math.Mat4) {
	gl.UseProgram(d.program)
	gl.UniformMatrix4fv(d.locModel, 1, false, m.Ptr())
}

// BindTexture binds a texture to a sampler slot.
func (d *Device) BindTexture(slot int, h gpu.TextureHandle) {
	gl.ActiveTexture(uint32(gl.TEXTURE0 + slot))
	gl.BindTexture(gl.TEXTURE_2D, d.textures[h])
	gl.UseProgram(d.program)
	gl.Uniform1i(d.locTexture, int32(slot))
}

// BindMesh binds a vertex buffer and its index buffer for drawing.
func (d *Device) BindMesh(vertices, indices gpu.BufferHandle) {
	vb := d.buffers[vertices]
	ib := d.buffers[indices]

	gl.BindVertexArray(vb.vao)
	// Element buffer binding is recorded into the bound VAO.
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ib.vbo)
	d.boundVAO = vb.vao
}

// Draw issues an indexed draw with the currently bound mesh.
func (d *Device) Draw(topology gpu.Topology, indexCount int) {
	gl.UseProgram(d.program)
	gl.DrawElements(glTopology(topology), int32(indexCount), gl.UNSIGNED_SHORT, nil)
}

// DrawInstanced issues an instanced draw. The instance buffer holds one
// column-major mat4 per instance.
func (d *Device) DrawInstanced(topology gpu.Topology, indexCount int, instances gpu.BufferHandle, instanceCount int) {
	inst, ok := d.buffers[instances]
	if !ok || d.boundVAO == 0 {
		return
	}

	gl.BindVertexArray(d.boundVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, inst.vbo)
	for col := 0; col < 4; col++ {
		loc := uint32(instanceBaseLocation + col)
		gl.EnableVertexAttribArray(loc)
		gl.VertexAttribPointerWithOffset(loc, 4, gl.FLOAT, false, 64, uintptr(col*16))
		gl.VertexAttribDivisor(loc, 1)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	gl.UseProgram(d.program)
	gl.DrawElementsInstanced(glTopology(topology), int32(indexCount), gl.UNSIGNED_SHORT, nil, int32(instanceCount))
}

func (d *Device) newHandle() uint32 {
	d.nextHandle++
	return d.nextHandle
}

func glTopology(t gpu.Topology) uint32 {
	switch t {
	case gpu.TopologyPoints:
		return gl.POINTS
	case gpu.TopologyLines:
		return gl.LINES
	case gpu.TopologyLineLoop:
		return gl.LINE_LOOP
	case gpu.TopologyLineStrip:
		return gl.LINE_STRIP
	case gpu.TopologyTriangleStrip:
		return gl.TRIANGLE_STRIP
	case gpu.TopologyTriangleFan:
		return gl.TRIANGLE_FAN
	default:
		return gl.TRIANGLES
	}
}

func glAttribType(t gpu.AttribType) uint32 {
	switch t {
	case gpu.AttribUint8:
		return gl.UNSIGNED_BYTE
	case gpu.AttribInt16:
		return gl.SHORT
	default:
		return gl.FLOAT
	}
}

func createProgram() (uint32, error) {
	vertexSource := `
		#version 410 core

		layout (location = 0) in vec3 aPos;
		layout (location = 1) in vec4 aPackedNormal;
		layout (location = 2) in vec2 aTexCoord;
		layout (location = 3) in vec4 aJoints;
		layout (location = 4) in vec4 aWeights;
		layout (location = 5) in mat4 aInstance;

		uniform mat4 uModel;
		uniform mat4 uView;
		uniform mat4 uProjection;

		out vec3 vNormal;
		out vec2 vTexCoord;

		void main() {
			// Skinned deformation happens CPU-side; the shader only
			// unpacks attributes and transforms.
			vNormal = aPackedNormal.xyz * 2.0 - 1.0;
			vTexCoord = aTexCoord;
			gl_Position = uProjection * uView * uModel * vec4(aPos, 1.0);
		}
	` + "\x00"

	fragmentSource := `
		#version 410 core

		in vec3 vNormal;
		in vec2 vTexCoord;

		uniform sampler2D uTexture;

		out vec4 FragColor;

		void main() {
			vec3 lightDir = normalize(vec3(0.4, 1.0, 0.3));
			float diffuse = max(dot(normalize(vNormal), lightDir), 0.0);
			vec4 tex = texture(uTexture, vTexCoord);
			FragColor = vec4(tex.rgb * (0.35 + 0.65 * diffuse), tex.a);
		}
	` + "\x00"

	vertexShader, err := compileShader(vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex shader: %w", err)
	}
	defer gl.DeleteShader(vertexShader)

	fragmentShader, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, fmt.Errorf("fragment shader: %w", err)
	}
	defer gl.DeleteShader(fragmentShader)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		return 0, fmt.Errorf("link failed: %s", log)
	}

	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		return 0, fmt.Errorf("compile failed: %s", log)
	}

	return shader, nil
}
