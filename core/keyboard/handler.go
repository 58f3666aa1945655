package keyboard

import (
	"context"

	"UndercoverFM/core/visualizer"
	"UndercoverFM/logger"
	"UndercoverFM/model"
)

// VolumeStep is the change applied by +/- and the up/down arrows.
const VolumeStep = 0.05

// Target receives the actions bound to keys. *session.Session implements it.
type Target interface {
	TogglePlay() error
	Next() error
	Prev() error
	ToggleShuffle() bool
	CycleRepeat() model.RepeatMode
	ToggleMute() bool
	AdjustVolume(delta float64)
	NextStyle(ctx context.Context) visualizer.Style
	SetQuery(q string)
	Query() string
}

// Handler maps key events to player actions. While the search field has
// focus, printable keys (space included) edit the query instead.
type Handler struct {
	target    Target
	searching bool
}

func NewHandler(target Target) *Handler {
	return &Handler{target: target}
}

// Searching reports whether the search field has focus.
func (h *Handler) Searching() bool { return h.searching }

// Query is the current search text. It is read back from the target since
// selecting an album or all songs clears the filter there.
func (h *Handler) Query() string { return h.target.Query() }

// Handle applies one key event and reports whether the user asked to quit.
func (h *Handler) Handle(ctx context.Context, ev Event) (quit bool) {
	if ev.Key == KeyCtrlC {
		return true
	}

	// arrows navigate whether or not the search field has focus
	switch ev.Key {
	case KeyRight:
		h.report("next", h.target.Next())
		return false
	case KeyLeft:
		h.report("prev", h.target.Prev())
		return false
	case KeyUp:
		h.target.AdjustVolume(VolumeStep)
		return false
	case KeyDown:
		h.target.AdjustVolume(-VolumeStep)
		return false
	}

	if h.searching {
		h.handleSearch(ev)
		return false
	}

	switch ev.Key {
	case KeySpace:
		h.report("toggle", h.target.TogglePlay())
	case KeyRune:
		switch ev.Rune {
		case '/':
			h.searching = true
		case 's', 'S':
			h.target.ToggleShuffle()
		case 'r', 'R':
			h.target.CycleRepeat()
		case 'm', 'M':
			h.target.ToggleMute()
		case '+', '=':
			h.target.AdjustVolume(VolumeStep)
		case '-', '_':
			h.target.AdjustVolume(-VolumeStep)
		case 'v', 'V':
			h.target.NextStyle(ctx)
		case 'q', 'Q':
			return true
		}
	}
	return false
}

func (h *Handler) handleSearch(ev Event) {
	query := []rune(h.target.Query())
	switch ev.Key {
	case KeyEnter:
		h.searching = false
	case KeyEscape:
		h.searching = false
		h.target.SetQuery("")
	case KeyBackspace:
		if len(query) > 0 {
			h.target.SetQuery(string(query[:len(query)-1]))
		}
	case KeySpace, KeyRune:
		h.target.SetQuery(string(append(query, ev.Rune)))
	}
}

func (h *Handler) report(action string, err error) {
	if err != nil {
		logger.Warn("键盘操作失败", logger.String("action", action), logger.ErrorField(err))
	}
}
