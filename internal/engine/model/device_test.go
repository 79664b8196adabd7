package model

import (
	"fmt"

	"github.com/fairhill1/gameEngine-sub001/internal/engine/gpu"
	"github.com/fairhill1/gameEngine-sub001/pkg/math"
)

type drawCall struct {
	topology   gpu.Topology
	indexCount int
	instanced  bool
}

// recordDevice is an in-memory gpu.Device that remembers every upload and
// draw so tests can assert on the pipeline's GPU traffic.
type recordDevice struct {
	next uint32

	vertexData map[gpu.BufferHandle][]byte
	indexData  map[gpu.BufferHandle][]byte

	textures       int
	liveTextures   int
	destroyedBufs  []gpu.BufferHandle
	draws          []drawCall
	boundTexture   gpu.TextureHandle
	transform      math.Mat4
	failNextCreate bool
}

func newRecordDevice() *recordDevice {
	return &recordDevice{
		vertexData: make(map[gpu.BufferHandle][]byte),
		indexData:  make(map[gpu.BufferHandle][]byte),
	}
}

func (d *recordDevice) handle() uint32 {
	d.next++
	return d.next
}

func (d *recordDevice) CreateVertexBuffer(data []byte, layout gpu.VertexLayout) (gpu.BufferHandle, error) {
	if d.failNextCreate {
		d.failNextCreate = false
		return 0, fmt.Errorf("device out of memory")
	}
	h := gpu.BufferHandle(d.handle())
	d.vertexData[h] = append([]byte(nil), data...)
	return h, nil
}

func (d *recordDevice) CreateIndexBuffer(data []byte) (gpu.BufferHandle, error) {
	h := gpu.BufferHandle(d.handle())
	d.indexData[h] = append([]byte(nil), data...)
	return h, nil
}

func (d *recordDevice) CreateTexture(w, h int, format gpu.TextureFormat, pixels []byte) (gpu.TextureHandle, error) {
	d.textures++
	d.liveTextures++
	return gpu.TextureHandle(d.handle()), nil
}

func (d *recordDevice) DestroyBuffer(h gpu.BufferHandle) {
	delete(d.vertexData, h)
	delete(d.indexData, h)
	d.destroyedBufs = append(d.destroyedBufs, h)
}

func (d *recordDevice) DestroyTexture(h gpu.TextureHandle) {
	d.liveTextures--
}

func (d *recordDevice) SetTransform(m math.Mat4) { d.transform = m }

func (d *recordDevice) BindTexture(slot int, h gpu.TextureHandle) { d.boundTexture = h }

func (d *recordDevice) BindMesh(vertices, indices gpu.BufferHandle) {}

func (d *recordDevice) Draw(topology gpu.Topology, indexCount int) {
	d.draws = append(d.draws, drawCall{topology: topology, indexCount: indexCount})
}

func (d *recordDevice) DrawInstanced(topology gpu.Topology, indexCount int, instances gpu.BufferHandle, instanceCount int) {
	d.draws = append(d.draws, drawCall{topology: topology, indexCount: indexCount, instanced: true})
}
