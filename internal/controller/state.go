package controller

import "github.com/alkime/docvoice/internal/operation"

// Phase names the variant of a State.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseInFlight  Phase = "in-flight"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// State is an immutable snapshot of the workflow. It is always exactly one of
// Idle, InFlight, Succeeded or Failed.
type State interface {
	Phase() Phase
	isState()
}

// Idle means no request is active and no result is held.
type Idle struct{}

// InFlight means a request has been issued and has not settled yet.
type InFlight struct {
	Operation operation.Operation
	FileName  string
	// Progress is an advisory percentage; it never decreases within a request.
	Progress int
}

// Succeeded holds the result of the request that produced it.
type Succeeded struct {
	Operation operation.Operation
	FileName  string
	Result    Result
}

// Failed carries a short, user-presentable description of what went wrong.
type Failed struct {
	Operation operation.Operation
	FileName  string
	Message   string
}

func (Idle) Phase() Phase      { return PhaseIdle }
func (InFlight) Phase() Phase  { return PhaseInFlight }
func (Succeeded) Phase() Phase { return PhaseSucceeded }
func (Failed) Phase() Phase    { return PhaseFailed }

func (Idle) isState()      {}
func (InFlight) isState()  {}
func (Succeeded) isState() {}
func (Failed) isState()    {}

// Result is either an AudioResult or a TextResult.
type Result interface {
	isResult()
}

// AudioResult exposes synthesized audio through a short-lived reference.
type AudioResult struct {
	Ref *AudioRef
}

// TextResult is the service's text reply, stored verbatim.
type TextResult struct {
	Content string
}

func (AudioResult) isResult() {}
func (TextResult) isResult()  {}

// Document is a user-selected file, consumed by a single Submit.
type Document struct {
	Name string
	Data []byte
}
