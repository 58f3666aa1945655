package model

import "fmt"

// RepeatMode 播放结束时的重复策略
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

func (m RepeatMode) String() string {
	switch m {
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "off"
	}
}

// Next 按 off → all → one → off 循环切换
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatOff
	}
}

// ParseRepeatMode 解析 "off" / "all" / "one"
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch s {
	case "off", "":
		return RepeatOff, nil
	case "all":
		return RepeatAll, nil
	case "one":
		return RepeatOne, nil
	}
	return RepeatOff, fmt.Errorf("unknown repeat mode %q", s)
}

func (m RepeatMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *RepeatMode) UnmarshalText(b []byte) error {
	v, err := ParseRepeatMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// VolumeState 音量状态。Muted 时输出音量强制为 0，PreviousVolume 保存静音前的音量
type VolumeState struct {
	Volume         float64 `json:"volume"`
	Muted          bool    `json:"muted"`
	PreviousVolume float64 `json:"previousVolume"`
}

// Output 返回应当送往音频设备的音量
func (v VolumeState) Output() float64 {
	if v.Muted {
		return 0
	}
	return v.Volume
}
