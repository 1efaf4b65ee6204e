package renderer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// GLSurface is the production window drawable: a CPU staging image the
// renderer composes into, uploaded once per frame as a texture and drawn
// as a single screen-filling quad. The GL plumbing (program, VAO/VBO,
// texture parameters) must run on the thread that owns the GL context —
// in practice the scheduler's render goroutine, the same thread that
// calls Present.
type GLSurface struct {
	staging *image.RGBA

	program uint32
	texture uint32
	vao     uint32
	vbo     uint32
	texLoc  int32

	texW, texH int
	initd      bool
}

// NewGLSurface allocates a surface for a width×height drawable. GL objects
// are created lazily on the first Present so construction is safe off the
// context thread.
func NewGLSurface(width, height int) *GLSurface {
	return &GLSurface{staging: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Resize reallocates the staging image only on an actual size change.
func (s *GLSurface) Resize(width, height int) {
	b := s.staging.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return
	}
	s.staging = image.NewRGBA(image.Rect(0, 0, width, height))
}

// Fill floods the staging image with c.
func (s *GLSurface) Fill(c color.RGBA) {
	draw.Draw(s.staging, s.staging.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// Blit copies src onto the staging image at (x, y).
func (s *GLSurface) Blit(src image.Image, x, y int) {
	b := src.Bounds()
	draw.Draw(s.staging, image.Rect(x, y, x+b.Dx(), y+b.Dy()), src, b.Min, draw.Over)
}

// Present uploads the staging image and draws it across the viewport.
func (s *GLSurface) Present() error {
	if !s.initd {
		if err := s.initGL(); err != nil {
			return fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
		}
		s.initd = true
	}

	w, h := s.staging.Bounds().Dx(), s.staging.Bounds().Dy()

	gl.BindTexture(gl.TEXTURE_2D, s.texture)
	if w != s.texW || h != s.texH {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(w), int32(h), 0,
			gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(s.staging.Pix))
		s.texW, s.texH = w, h
	} else {
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(w), int32(h),
			gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(s.staging.Pix))
	}

	gl.Viewport(0, 0, int32(w), int32(h))
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	gl.UseProgram(s.program)
	gl.Uniform1i(s.texLoc, 0)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindVertexArray(s.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

// Destroy releases the GL objects. Must run on the context thread.
func (s *GLSurface) Destroy() {
	if !s.initd {
		return
	}
	gl.DeleteTextures(1, &s.texture)
	gl.DeleteBuffers(1, &s.vbo)
	gl.DeleteVertexArrays(1, &s.vao)
	gl.DeleteProgram(s.program)
	s.initd = false
}

func (s *GLSurface) initGL() error {
	vertShader := `
		#version 410 core
		layout (location = 0) in vec4 vertex; // <vec2 pos, vec2 tex>
		out vec2 TexCoords;
		void main() {
			gl_Position = vec4(vertex.xy, 0.0, 1.0);
			TexCoords = vertex.zw;
		}
	` + "\x00"

	fragShader := `
		#version 410 core
		in vec2 TexCoords;
		out vec4 FragColor;
		uniform sampler2D frame;
		void main() {
			FragColor = texture(frame, TexCoords);
		}
	` + "\x00"

	program, err := createProgram(vertShader, fragShader)
	if err != nil {
		return fmt.Errorf("failed to create frame shader: %w", err)
	}
	s.program = program
	s.texLoc = gl.GetUniformLocation(s.program, gl.Str("frame\x00"))

	// One clip-space quad; the texture's v axis is flipped because image
	// rows grow downward.
	vertices := []float32{
		-1, 1, 0, 0,
		1, 1, 1, 0,
		1, -1, 1, 1,
		-1, 1, 0, 0,
		1, -1, 1, 1,
		-1, -1, 0, 1,
	}

	gl.GenVertexArrays(1, &s.vao)
	gl.GenBuffers(1, &s.vbo)
	gl.BindVertexArray(s.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, s.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 4, gl.FLOAT, false, 4*4, 0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	gl.GenTextures(1, &s.texture)
	gl.BindTexture(gl.TEXTURE_2D, s.texture)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	return nil
}

func createProgram(vertSource, fragSource string) (uint32, error) {
	vert, err := compileShader(vertSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	frag, err := compileShader(fragSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vert)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vert)
	gl.AttachShader(program, frag)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(infoLog))
		return 0, fmt.Errorf("failed to link program: %v", infoLog)
	}

	gl.DeleteShader(vert)
	gl.DeleteShader(frag)
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
		infoLog := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(infoLog))
		return 0, fmt.Errorf("failed to compile shader: %v", infoLog)
	}

	return shader, nil
}
