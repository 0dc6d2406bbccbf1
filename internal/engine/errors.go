package engine

// Error codes of spec §7's validation taxonomy, surfaced to callers as a
// typed error event — never as a mutation.
const (
	CodeNotFound            = "NotFound"
	CodeNotAParticipant     = "NotAParticipant"
	CodeNotHost             = "NotHost"
	CodeNotScheduled        = "NotScheduled"
	CodeNoPlayers           = "NoPlayers"
	CodeCancelled           = "Cancelled"
	CodeMatchNotOngoing     = "MatchNotOngoing"
	CodeWrongQuestion       = "WrongQuestion"
	CodeAlreadyAnswered     = "AlreadyAnswered"
	CodeOptionNotRecognised = "OptionNotRecognised"
	CodeWrongSubState       = "WrongSubState"
	CodeBusy                = "Busy"
)

// Error is the typed error carried over the Event Dispatcher, per spec §7.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}
