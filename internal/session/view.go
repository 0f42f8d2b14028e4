package session

// ErrorKind classifies errors reported to the user.
type ErrorKind int

const (
	// ErrorNotFound means the passage file or difficulty is missing.
	ErrorNotFound ErrorKind = iota + 1
	// ErrorNoDifficulty means a start was requested without a difficulty.
	ErrorNoDifficulty
	// ErrorPersistence means the best score could not be saved.
	ErrorPersistence
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNotFound:
		return "passage not found"
	case ErrorNoDifficulty:
		return "no difficulty selected"
	case ErrorPersistence:
		return "persistence failed"
	default:
		return "unknown error"
	}
}

// View receives the notifications a session produces. Implementations are
// called synchronously from the goroutine driving the session.
type View interface {
	ShowScore(wpm float64)
	ShowTimer(seconds int)
	ShowResult(wpm float64, errors int)
	ShowBest(wpm float64)
	ShowError(kind ErrorKind, msg string)
}

type nopView struct{}

func (nopView) ShowScore(float64) {}
func (nopView) ShowTimer(int) {}
func (nopView) ShowResult(float64, int) {}
func (nopView) ShowBest(float64) {}
func (nopView) ShowError(ErrorKind, string) {}
