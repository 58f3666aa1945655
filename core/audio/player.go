package audio

import (
	"context"
	"errors"
	"math"
	"net/http"
	"sync"
	"time"

	"UndercoverFM/core/analysis"
	"UndercoverFM/logger"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
)

var errNotAttached = errors.New("audio device not attached")

// Options 播放器配置
type Options struct {
	SampleRate int
	FFTSize    int
	Client     *http.Client
	// OnEnded 和 OnError 在独立的 goroutine 中调用，携带所属音源的代号
	OnEnded func(gen uint64)
	OnError func(gen uint64, err error)
}

// Player 每次将一首远程歌曲流式输出到扬声器：
// HTTP range reader → decoder → resampler → ctrl → tap → volume.
type Player struct {
	opts Options
	rate beep.SampleRate

	mu       sync.Mutex
	attached bool
	analyser *analysis.Analyser
	gen      uint64
	url      string
	cancel   context.CancelFunc
	stream   beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	queued   bool
	level    float64
}

func NewPlayer(opts Options) *Player {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 44100
	}
	if opts.FFTSize <= 0 {
		opts.FFTSize = 256
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	return &Player{opts: opts, rate: beep.SampleRate(opts.SampleRate), level: 1}
}

// Attach 初始化扬声器和分析器，只执行一次
func (p *Player) Attach() (analysis.Source, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attached {
		return p.analyser, nil
	}

	a, err := analysis.NewAnalyser(p.opts.FFTSize)
	if err != nil {
		return nil, err
	}
	if err := speaker.Init(p.rate, p.rate.N(time.Second/10)); err != nil {
		return nil, err
	}
	p.analyser = a
	p.attached = true
	logger.Info("音频设备已初始化", logger.Int("sampleRate", int(p.rate)), logger.Int("fftSize", p.opts.FFTSize))
	return a, nil
}

func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.attached {
		return errNotAttached
	}
	return speaker.Resume()
}

// SetSource 丢弃当前流，新音源在 Play 时才打开
func (p *Player) SetSource(url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	p.gen++
	p.url = url
	if p.analyser != nil {
		p.analyser.Reset()
	}
	return nil
}

// Generation 当前音源的代号，旧代号的回调视为过期
func (p *Player) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.attached {
		return errNotAttached
	}
	if p.url == "" {
		return errors.New("no source")
	}
	if p.stream == nil {
		if err := p.openLocked(); err != nil {
			return err
		}
	}
	if !p.queued {
		gen, v := p.gen, p.volume
		speaker.Play(beep.Seq(v, beep.Callback(func() {
			// 在 speaker 锁内执行
			go p.finished(gen, v)
		})))
		p.queued = true
	}
	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

func (p *Player) openLocked() error {
	ctx, cancel := context.WithCancel(context.Background())
	rr, err := OpenRange(ctx, p.opts.Client, p.url)
	if err != nil {
		cancel()
		return err
	}
	s, format, err := Decode(rr, Extension(p.url))
	if err != nil {
		cancel()
		return err
	}

	p.cancel = cancel
	p.stream = s
	p.format = format
	p.ctrl = &beep.Ctrl{Streamer: beep.Resample(4, format.SampleRate, p.rate, s)}
	p.volume = &effects.Volume{Streamer: NewTap(p.ctrl, p.analyser), Base: 2}
	applyLevel(p.volume, p.level)

	logger.Debug("音频流已打开",
		logger.String("url", p.url),
		logger.Int("sampleRate", int(format.SampleRate)),
		logger.Int("channels", format.NumChannels))
	return nil
}

func (p *Player) finished(gen uint64, v *effects.Volume) {
	p.mu.Lock()
	if gen != p.gen || v != p.volume {
		p.mu.Unlock()
		return
	}
	p.queued = false
	err := v.Err()
	p.mu.Unlock()

	if err != nil {
		if p.opts.OnError != nil {
			p.opts.OnError(gen, &decodeError{err})
		}
		return
	}
	if p.opts.OnEnded != nil {
		p.opts.OnEnded(gen)
	}
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
}

func (p *Player) Seek(d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return nil
	}
	speaker.Lock()
	defer speaker.Unlock()
	pos := p.format.SampleRate.N(d)
	if n := p.stream.Len(); pos >= n {
		pos = n - 1
	}
	if pos < 0 {
		pos = 0
	}
	return p.stream.Seek(pos)
}

func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = v
	if p.volume == nil {
		return
	}
	speaker.Lock()
	applyLevel(p.volume, v)
	speaker.Unlock()
}

// applyLevel 将 [0,1] 的线性音量映射到以 2 为底的音量效果
func applyLevel(v *effects.Volume, level float64) {
	v.Silent = level <= 0
	if !v.Silent {
		v.Volume = math.Log2(level)
	}
}

func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return 0
	}
	speaker.Lock()
	defer speaker.Unlock()
	return p.format.SampleRate.D(p.stream.Position())
}

func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return 0
	}
	speaker.Lock()
	defer speaker.Unlock()
	return p.format.SampleRate.D(p.stream.Len())
}

// Close 停止播放并释放设备
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	p.gen++
	if p.attached {
		speaker.Close()
		p.attached = false
	}
}

func (p *Player) closeLocked() {
	if p.attached {
		speaker.Clear()
	}
	if p.stream != nil {
		if err := p.stream.Close(); err != nil {
			logger.Debug("关闭音频流失败", logger.ErrorField(err))
		}
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.stream = nil
	p.ctrl = nil
	p.volume = nil
	p.cancel = nil
	p.queued = false
}
