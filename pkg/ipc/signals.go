package ipc

// Result is the envelope returned by shell operations invoked from the view.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// OK is a successful Result.
func OK() Result {
	return Result{Success: true}
}

// Failed wraps err in an unsuccessful Result.
func Failed(err error) Result {
	r := Result{}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Signals are the one-way messages the shell sends to the view, plus the window
// commands used by the browser surface.
type Signals struct {
	AutoRefresh  *Topic[struct{}]
	ForceRefresh *Topic[struct{}]
	NavigateTo   *Topic[string]
	ThemeChanged *Topic[string]

	Show  *Topic[struct{}]
	Hide  *Topic[struct{}]
	Focus *Topic[struct{}]
}

// NewSignals creates the full signal set.
func NewSignals() *Signals {
	return &Signals{
		AutoRefresh:  NewTopic[struct{}]("auto-refresh"),
		ForceRefresh: NewTopic[struct{}]("force-refresh"),
		NavigateTo:   NewTopic[string]("navigate-to"),
		ThemeChanged: NewTopic[string]("theme-changed"),
		Show:         NewTopic[struct{}]("show"),
		Hide:         NewTopic[struct{}]("hide"),
		Focus:        NewTopic[struct{}]("focus"),
	}
}
