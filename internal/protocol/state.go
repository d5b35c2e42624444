package protocol

// StateKind enumerates the connection states of a Client.
type StateKind int

// Connection state kinds.
const (
	KindDisconnected StateKind = iota
	KindConnecting
	KindConnected
	KindInitializing
	KindReady
	KindError
)

func (k StateKind) String() string {
	switch k {
	case KindDisconnected:
		return "disconnected"
	case KindConnecting:
		return "connecting"
	case KindConnected:
		return "connected"
	case KindInitializing:
		return "initializing"
	case KindReady:
		return "ready"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// ConnectionState is the state of a Client's connection.
// Message is only meaningful for KindError.
type ConnectionState struct {
	Kind    StateKind
	Message string
}

// Connection states without payload.
var (
	Disconnected = ConnectionState{Kind: KindDisconnected}
	Connecting   = ConnectionState{Kind: KindConnecting}
	Connected    = ConnectionState{Kind: KindConnected}
	Initializing = ConnectionState{Kind: KindInitializing}
	Ready        = ConnectionState{Kind: KindReady}
)

// ErrorState returns the error state carrying message.
func ErrorState(message string) ConnectionState {
	return ConnectionState{Kind: KindError, Message: message}
}

// Equal reports whether two states are the same. Error states are equal iff
// their messages are equal; all other states compare by kind only.
func (s ConnectionState) Equal(other ConnectionState) bool {
	if s.Kind != other.Kind {
		return false
	}

	if s.Kind == KindError {
		return s.Message == other.Message
	}

	return true
}

// IsReady reports whether tools may be listed and called.
func (s ConnectionState) IsReady() bool { return s.Kind == KindReady }

func (s ConnectionState) String() string {
	if s.Kind == KindError {
		return "error(" + s.Message + ")"
	}

	return s.Kind.String()
}

// ValidTransition reports whether a client may move from one state to another.
//
//	Disconnected -> Connecting
//	Error        -> Connecting
//	Connecting   -> Connected | Initializing
//	Connected    -> Initializing
//	Initializing -> Ready
//	any          -> Error | Disconnected (except Disconnected -> Disconnected)
func ValidTransition(from, to ConnectionState) bool {
	switch to.Kind {
	case KindError:
		return true
	case KindDisconnected:
		return from.Kind != KindDisconnected
	case KindConnecting:
		return from.Kind == KindDisconnected || from.Kind == KindError
	case KindConnected:
		return from.Kind == KindConnecting
	case KindInitializing:
		return from.Kind == KindConnecting || from.Kind == KindConnected
	case KindReady:
		return from.Kind == KindInitializing
	default:
		return false
	}
}
