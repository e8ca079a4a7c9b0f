package types

// Stage is a state of a single pipeline request.
type Stage string

const (
	StageAcquiring    Stage = "acquiring"
	StageAcquired     Stage = "acquired"
	StageTranscribing Stage = "transcribing"
	StageTranscribed  Stage = "transcribed"
	StageAnalyzing    Stage = "analyzing"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

type OutcomeKind int

const (
	OutcomeOK OutcomeKind = iota
	OutcomeHardFail
	OutcomeSoftFail
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeHardFail:
		return "hard_fail"
	case OutcomeSoftFail:
		return "soft_fail"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of one stage: Ok(Value), HardFail(Err) or SoftFail(Err).
type Outcome[T any] struct {
	Kind  OutcomeKind
	Value T
	Err   error
}

func Ok[T any](v T) Outcome[T] { return Outcome[T]{Kind: OutcomeOK, Value: v} }

func HardFail[T any](err error) Outcome[T] { return Outcome[T]{Kind: OutcomeHardFail, Err: err} }

func SoftFail[T any](err error) Outcome[T] { return Outcome[T]{Kind: OutcomeSoftFail, Err: err} }
