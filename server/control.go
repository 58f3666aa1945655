package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"UndercoverFM/core/catalog"
	"UndercoverFM/core/playlist"
	"UndercoverFM/core/session"
	"UndercoverFM/core/transport"
	"UndercoverFM/core/visualizer"
	"UndercoverFM/logger"
	"UndercoverFM/model"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Player 通过 HTTP 暴露的会话操作，由 *session.Session 实现
type Player interface {
	State() session.State
	Catalog() *catalog.Catalog
	Entries() []playlist.Entry
	Visible() []playlist.Entry
	SetQuery(q string)

	Play() error
	Pause()
	TogglePlay() error
	Next() error
	Prev() error
	ToggleShuffle() bool
	CycleRepeat() model.RepeatMode
	ToggleMute() bool
	SetVolume(v float64)
	SeekFraction(f float64) error

	SelectAll()
	SelectAlbum(id string) error
	SelectArtist(id string) ([]*model.Album, error)
	PlayIndex(i int) error

	SetStyle(ctx context.Context, name string) error
	Resize(width, height int)
}

// ControlServer 提供 JSON 控制接口和 WebSocket 推送
type ControlServer struct {
	player   Player
	frames   *FrameStore
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewControlServer(player Player, frames *FrameStore, hub *Hub) *ControlServer {
	return &ControlServer{
		player: player,
		frames: frames,
		hub:    hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler 注册控制 API 路由。CORS 包在路由外层，预检请求不经过方法匹配
func (s *ControlServer) Handler() http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.StateHandler).Methods(http.MethodGet)
	api.HandleFunc("/catalog", s.CatalogHandler).Methods(http.MethodGet)
	api.HandleFunc("/playlist", s.PlaylistHandler).Methods(http.MethodGet)
	api.HandleFunc("/playlist/query", s.QueryHandler).Methods(http.MethodPut)
	api.HandleFunc("/playlist/{index:[0-9]+}/play", s.PlayIndexHandler).Methods(http.MethodPost)
	api.HandleFunc("/player/volume", s.VolumeHandler).Methods(http.MethodPut)
	api.HandleFunc("/player/{action}", s.PlayerActionHandler).Methods(http.MethodPost)
	api.HandleFunc("/select/all", s.SelectAllHandler).Methods(http.MethodPost)
	api.HandleFunc("/select/album/{id}", s.SelectAlbumHandler).Methods(http.MethodPost)
	api.HandleFunc("/select/artist/{id}", s.SelectArtistHandler).Methods(http.MethodPost)
	api.HandleFunc("/visualizer/style", s.StyleHandler).Methods(http.MethodPut)
	api.HandleFunc("/visualizer/size", s.SizeHandler).Methods(http.MethodPut)
	api.HandleFunc("/visualizer/frame.png", s.FrameHandler).Methods(http.MethodGet)

	router.HandleFunc("/ws", s.WebSocketHandler).Methods(http.MethodGet)
	return corsMiddleware(router)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    data,
	}); err != nil {
		logger.Error("编码响应失败", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]interface{}{
		"success": false,
		"message": message,
	}
	if data != nil {
		body["data"] = data
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("编码错误响应失败", logger.ErrorField(err))
	}
}

// writeResult 将领域错误映射为 HTTP 状态码
func writeResult(w http.ResponseWriter, err error, data interface{}) {
	if err == nil {
		writeJSON(w, http.StatusOK, data)
		return
	}

	var se *transport.StreamError
	switch {
	case errors.As(err, &se):
		writeError(w, http.StatusBadGateway, "playback failed", se.Diagnostic())
	case errors.Is(err, playlist.ErrAlbumNotFound), errors.Is(err, playlist.ErrArtistNotFound):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, playlist.ErrEmptySequence):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, visualizer.ErrUnknownStyle), errors.Is(err, errUnknownAction):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		logger.Error("控制请求失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, err.Error(), nil)
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *ControlServer) StateHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.player.State())
}

// CatalogResponse 曲库概览
type CatalogResponse struct {
	BaseURL string                `json:"baseUrl"`
	Artists []*model.Artist       `json:"artists"`
	Albums  []catalog.AlbumChoice `json:"albums"`
	Songs   int                   `json:"songs"`
}

func (s *ControlServer) CatalogHandler(w http.ResponseWriter, r *http.Request) {
	cat := s.player.Catalog()
	writeJSON(w, http.StatusOK, CatalogResponse{
		BaseURL: cat.BaseURL,
		Artists: cat.Artists,
		Albums:  cat.AlbumChoices(),
		Songs:   len(cat.Songs),
	})
}

// PlaylistRow 播放列表中的一行
type PlaylistRow struct {
	Position int         `json:"position"`
	Song     *model.Song `json:"song"`
	Current  bool        `json:"current"`
}

// PlaylistHandler 列出可见行，q 参数只过滤本次响应，不修改会话
func (s *ControlServer) PlaylistHandler(w http.ResponseWriter, r *http.Request) {
	var entries []playlist.Entry
	if q, ok := r.URL.Query()["q"]; ok {
		entries = playlist.Filter(s.player.Entries(), q[0])
	} else {
		entries = s.player.Visible()
	}

	current := s.player.State().Index
	rows := make([]PlaylistRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, PlaylistRow{Position: e.Position, Song: e.Song, Current: e.Position == current})
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *ControlServer) QueryHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	s.player.SetQuery(req.Query)
	writeJSON(w, http.StatusOK, map[string]string{"query": req.Query})
}

func (s *ControlServer) PlayIndexHandler(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid index", nil)
		return
	}
	if err := s.player.PlayIndex(index); err != nil {
		writeResult(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, s.player.State())
}

var errUnknownAction = errors.New("unknown player action")

// ActionRequest 播放操作的可选参数
type ActionRequest struct {
	Fraction float64 `json:"fraction"`
}

// Dispatch 按名称执行播放操作，HTTP 接口和 WebSocket 命令共用
func Dispatch(p Player, action string, req ActionRequest) error {
	switch action {
	case "play":
		return p.Play()
	case "pause":
		p.Pause()
	case "toggle":
		return p.TogglePlay()
	case "next":
		return p.Next()
	case "prev":
		return p.Prev()
	case "shuffle":
		p.ToggleShuffle()
	case "repeat":
		p.CycleRepeat()
	case "mute":
		p.ToggleMute()
	case "seek":
		return p.SeekFraction(req.Fraction)
	default:
		return fmt.Errorf("%w: %s", errUnknownAction, action)
	}
	return nil
}

func (s *ControlServer) PlayerActionHandler(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", nil)
			return
		}
	}
	if err := Dispatch(s.player, mux.Vars(r)["action"], req); err != nil {
		writeResult(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, s.player.State())
}

func (s *ControlServer) VolumeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Volume *float64 `json:"volume"`
	}
	if err := decodeBody(r, &req); err != nil || req.Volume == nil {
		writeError(w, http.StatusBadRequest, "volume is required", nil)
		return
	}
	s.player.SetVolume(*req.Volume)
	writeJSON(w, http.StatusOK, s.player.State().Volume)
}

func (s *ControlServer) SelectAllHandler(w http.ResponseWriter, r *http.Request) {
	s.player.SelectAll()
	writeJSON(w, http.StatusOK, s.player.State())
}

func (s *ControlServer) SelectAlbumHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.player.SelectAlbum(mux.Vars(r)["id"]); err != nil {
		writeResult(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, s.player.State())
}

func (s *ControlServer) SelectArtistHandler(w http.ResponseWriter, r *http.Request) {
	albums, err := s.player.SelectArtist(mux.Vars(r)["id"])
	if err != nil {
		writeResult(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"albums": albums,
		"state":  s.player.State(),
	})
}

func (s *ControlServer) StyleHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Style string `json:"style"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := s.player.SetStyle(r.Context(), req.Style); err != nil {
		writeResult(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, s.player.State().Visualizer)
}

func (s *ControlServer) SizeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := decodeBody(r, &req); err != nil || req.Width <= 0 || req.Height <= 0 {
		writeError(w, http.StatusBadRequest, "width and height must be positive", nil)
		return
	}
	if req.Width > visualizer.MaxCanvasDim || req.Height > visualizer.MaxCanvasDim {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("width and height must not exceed %d", visualizer.MaxCanvasDim), nil)
		return
	}
	s.player.Resize(req.Width, req.Height)
	writeJSON(w, http.StatusAccepted, map[string]int{"width": req.Width, "height": req.Height})
}

func (s *ControlServer) FrameHandler(w http.ResponseWriter, r *http.Request) {
	data, seq, ok, err := s.frames.PNG()
	if err != nil {
		logger.Error("编码可视化帧失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "encode frame failed", nil)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Frame-Seq", strconv.FormatUint(seq, 10))
	w.Write(data)
}

// Serve 在 addr 上运行 handler，ctx 取消后优雅关闭
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP 服务启动", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown %s: %w", addr, err)
	}
	logger.Info("HTTP 服务已关闭", logger.String("addr", addr))
	return nil
}
