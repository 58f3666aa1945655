package server

import (
	"bytes"
	"image"
	"image/png"
	"sync"
)

// FrameStore 保存最新渲染的一帧，作为渲染循环的输出，每帧最多编码一次 PNG
type FrameStore struct {
	mu      sync.Mutex
	img     *image.RGBA
	seq     uint64
	encoded []byte
	encSeq  uint64
}

func NewFrameStore() *FrameStore {
	return &FrameStore{}
}

// PublishFrame 接管 img 的所有权
func (f *FrameStore) PublishFrame(img *image.RGBA) {
	f.mu.Lock()
	f.img = img
	f.seq++
	f.mu.Unlock()
}

// Seq 每发布一帧递增
func (f *FrameStore) Seq() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seq
}

// PNG 返回最新帧的 PNG 编码和序号，尚无帧时 ok 为 false
func (f *FrameStore) PNG() (data []byte, seq uint64, ok bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.img == nil {
		return nil, 0, false, nil
	}
	if f.encoded != nil && f.encSeq == f.seq {
		return f.encoded, f.seq, true, nil
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, f.img); err != nil {
		return nil, 0, false, err
	}
	f.encoded = buf.Bytes()
	f.encSeq = f.seq
	return f.encoded, f.seq, true, nil
}
