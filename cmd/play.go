package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"UndercoverFM/cache"
	"UndercoverFM/core/audio"
	"UndercoverFM/core/catalog"
	"UndercoverFM/core/events"
	"UndercoverFM/core/keyboard"
	"UndercoverFM/core/scheduler"
	"UndercoverFM/core/session"
	"UndercoverFM/core/transport"
	"UndercoverFM/logger"
	"UndercoverFM/model"
	"UndercoverFM/server"
	"UndercoverFM/storage"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	playAddr       string
	playManifest   string
	playNoKeyboard bool
	playStyle      string
)

// manifestWatchWait 清单文件变化后的静默等待时间
const manifestWatchWait = 500 * time.Millisecond

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "启动播放器",
	Long: `加载歌单清单并开始播放会话。
同时启动控制接口（HTTP + WebSocket），终端模式下可用键盘操作：
  空格 播放/暂停   ←/→ 上一首/下一首   ↑/↓ 音量
  s 随机  r 循环模式  m 静音  v 切换可视化  / 搜索  q 退出`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runPlayer(ctx, stop)
	},
}

func init() {
	playCmd.Flags().StringVar(&playAddr, "addr", "", "控制接口监听地址（默认 CONTROL_ADDR）")
	playCmd.Flags().StringVarP(&playManifest, "manifest", "m", "", "清单来源（默认 MANIFEST_SOURCE）")
	playCmd.Flags().BoolVar(&playNoKeyboard, "no-keyboard", false, "不接管终端键盘输入")
	playCmd.Flags().StringVar(&playStyle, "style", "", "启动时使用的可视化样式")
	rootCmd.AddCommand(playCmd)
}

// interactive 当前是否以终端键盘模式运行
func interactive() bool {
	return !playNoKeyboard && term.IsTerminal(int(os.Stdin.Fd()))
}

func runPlayer(ctx context.Context, quit context.CancelFunc) error {
	source := cfg.ManifestSource
	if playManifest != "" {
		source = playManifest
	}
	addr := cfg.ControlAddr
	if playAddr != "" {
		addr = playAddr
	}

	var objects catalog.ObjectReader
	if strings.HasPrefix(source, "minio://") {
		mc, err := storage.NewMinioClient(cfg)
		if err != nil {
			return err
		}
		objects = mc
	}
	fetcher := catalog.NewFetcher(source, objects)

	prefs := cache.OpenPreferenceStore(cfg)
	defer prefs.Close()

	bus := events.NewBus()
	defer bus.Close()
	frames := server.NewFrameStore()

	var sess *session.Session
	player := audio.NewPlayer(audio.Options{
		SampleRate: cfg.SampleRate,
		FFTSize:    cfg.FFTSize,
		OnEnded:    func(gen uint64) { sess.HandleEnded(gen) },
		OnError:    func(gen uint64, err error) { sess.HandleStreamError(gen, err) },
	})
	defer player.Close()

	sess = session.New(session.Options{
		Output:          player,
		Fetcher:         fetcher,
		BaseURLOverride: cfg.BaseURLOverride,
		Prefs:           prefs,
		Bus:             bus,
		Clock:           scheduler.Real(),
		Sink:            frames,
		Volume:          cfg.DefaultVolume,
		Width:           cfg.CanvasWidth,
		Height:          cfg.CanvasHeight,
		FrameInterval:   cfg.FrameInterval(),
		FadeDuration:    cfg.FadeDuration,
		ResizeDebounce:  cfg.ResizeDebounce,
		Smoothing:       cfg.BarSmoothing,
	})
	defer sess.Close()

	// 先订阅再启动，避免错过首个 catalog.loaded
	var status <-chan events.Event
	if interactive() {
		status = bus.Subscribe(32)
	}
	wsEvents := bus.Subscribe(256)

	if err := sess.Start(ctx); err != nil {
		logger.Warn("歌单清单不可用，以空目录启动", logger.String("source", fetcher.String()), logger.ErrorField(err))
	}
	if playStyle != "" {
		if err := sess.SetStyle(ctx, playStyle); err != nil {
			logger.Warn("可视化样式无效", logger.String("style", playStyle), logger.ErrorField(err))
		}
	}

	if ff, ok := fetcher.(catalog.FileFetcher); ok && cfg.WatchManifest {
		w, err := catalog.NewWatcher(ff.Path, manifestWatchWait, func() {
			logger.Info("清单文件已变化，重新加载", logger.String("path", ff.Path))
			sess.LoadCatalog(ctx)
		})
		if err != nil {
			logger.Warn("无法监听清单文件", logger.String("path", ff.Path), logger.ErrorField(err))
		} else {
			go w.Run(ctx)
		}
	}

	hub := server.NewHub()
	go hub.Run()
	defer hub.Stop()
	go hub.PumpEvents(ctx, wsEvents)
	go hub.PumpFrames(ctx, frames, cfg.WSFrameInterval)

	control := server.NewControlServer(sess, frames, hub)
	go func() {
		if err := server.Serve(ctx, addr, control.Handler()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("控制接口异常退出", logger.String("addr", addr), logger.ErrorField(err))
			quit()
		}
	}()
	logger.Info("播放器已启动", logger.String("source", fetcher.String()), logger.String("addr", addr))

	if !interactive() {
		fmt.Printf("UndercoverFM 已启动，控制接口: %s\n", addr)
		<-ctx.Done()
		return nil
	}

	go printStatus(ctx, status)
	return runKeyboard(ctx, sess, quit)
}

// runKeyboard 将终端切换到 raw 模式并把按键交给 keyboard.Handler
func runKeyboard(ctx context.Context, target keyboard.Target, quit context.CancelFunc) error {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("切换终端 raw 模式失败: %w", err)
	}
	defer term.Restore(fd, oldState)

	fmt.Print("UndercoverFM  空格 播放/暂停  ←/→ 切歌  ↑/↓ 音量  / 搜索  q 退出\r\n")

	input := make(chan []byte)
	go func() {
		buf := make([]byte, 64)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				quit()
				return
			}
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case input <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	h := keyboard.NewHandler(target)
	var pending []byte
	for {
		select {
		case <-ctx.Done():
			fmt.Print("\r\n")
			return nil
		case chunk := <-input:
			evs, rest := keyboard.Decode(append(pending, chunk...))
			pending = rest
			for _, ev := range evs {
				if h.Handle(ctx, ev) {
					quit()
					break
				}
			}
			if h.Searching() {
				fmt.Printf("\r\x1b[K/%s", h.Query())
			}
		}
	}
}

// printStatus 在终端打印会话事件
func printStatus(ctx context.Context, sub <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if line := statusLine(ev); line != "" {
				fmt.Printf("\r\x1b[K%s\r\n", line)
			}
		}
	}
}

func statusLine(ev events.Event) string {
	switch ev.Type {
	case events.TrackLoaded:
		if np, ok := ev.Payload.(transport.NowPlaying); ok {
			return fmt.Sprintf("♪ %d. %s - %s  [%s]", np.Index+1, np.Artist, np.Title, np.Album)
		}
	case events.PlaybackChanged:
		if m, ok := ev.Payload.(map[string]bool); ok {
			if m["playing"] {
				return "▶ 播放"
			}
			return "⏸ 暂停"
		}
	case events.VolumeChanged:
		if v, ok := ev.Payload.(model.VolumeState); ok {
			if v.Muted {
				return "音量: 静音"
			}
			return fmt.Sprintf("音量: %d%%", int(v.Volume*100+0.5))
		}
	case events.ModeChanged:
		return fmt.Sprintf("模式 %v", ev.Payload)
	case events.StyleChanged:
		if m, ok := ev.Payload.(map[string]string); ok {
			return "可视化: " + m["style"]
		}
	case events.CatalogLoaded:
		if m, ok := ev.Payload.(map[string]int); ok {
			return fmt.Sprintf("目录已加载: %d 位艺人, %d 张专辑, %d 首歌", m["artists"], m["albums"], m["songs"])
		}
	case events.CatalogUnavailable, events.Diagnostic:
		return fmt.Sprintf("⚠ %v", ev.Payload)
	}
	return ""
}
