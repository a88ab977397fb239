// Package viewstate models the per-source loading state shown by dashboards:
// exactly one of idle, loading, ready or error. The server reports idle,
// ready and error; clients mark a source loading while they fetch it.
package viewstate

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

type State struct {
	Status Status `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

func Idle() State {
	return State{Status: StatusIdle}
}

func Ready(data any) State {
	return State{Status: StatusReady, Data: data}
}

// Failed carries the user-facing message only.
func Failed(message string) State {
	return State{Status: StatusError, Error: message}
}

// From builds Ready or Failed depending on err.
func From(data any, err error, message string) State {
	if err != nil {
		return Failed(message)
	}
	return Ready(data)
}
