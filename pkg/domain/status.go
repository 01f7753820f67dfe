package domain

// Status は生成処理のライフサイクルです。
type Status int

const (
	StatusIdle Status = iota
	StatusInFlight
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusInFlight:
		return "in-flight"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}
