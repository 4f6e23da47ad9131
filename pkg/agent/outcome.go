package agent

import "strings"

// Outcome tags how a run terminated.
type Outcome string

const (
	// OutcomeFinalized means the model produced a final answer on its own.
	OutcomeFinalized Outcome = "finalized"
	// OutcomeExhausted means the round budget ran out and the last
	// assistant text (or a stop sentinel) was returned instead.
	OutcomeExhausted Outcome = "exhausted"
)

// StoppedSentinel is returned as the answer text when the round budget is
// exhausted and no assistant text exists to fall back to.
const StoppedSentinel = "[Stopped: max steps reached]"

// IsFinalAnswer reports whether assistant text constitutes a final
// answer: either an explicit "Final Answer:" marker or both contract
// headers ("Premise:" and "Verdict:") present. This is a heuristic over
// model output; a reply that merely discusses the contract fields can
// trigger it.
func IsFinalAnswer(text string) bool {
	if strings.Contains(text, "Final Answer:") {
		return true
	}
	return strings.Contains(text, "Premise:") && strings.Contains(text, "Verdict:")
}

// Classification is the loop-termination decision for one assistant
// reply.
type Classification struct {
	Finalized bool
	// Text is the answer text when Finalized.
	Text string
}

// ClassifyOutcome decides whether an assistant reply ends the run. The
// detection heuristic lives here, not in the loop, so it can be swapped
// or tested on its own.
func ClassifyOutcome(text string) Classification {
	if IsFinalAnswer(text) {
		return Classification{Finalized: true, Text: text}
	}
	return Classification{}
}
