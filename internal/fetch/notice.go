package fetch

import "time"

// Level is the severity of a Notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

// NoticeTTL is how long a notice stays visible.
const NoticeTTL = 4 * time.Second

// Notice is a transient user-facing message produced by a view action.
type Notice struct {
	Level Level
	Text  string
}

func success(text string) Notice { return Notice{Level: LevelSuccess, Text: text} }
func failure(text string) Notice { return Notice{Level: LevelError, Text: text} }
