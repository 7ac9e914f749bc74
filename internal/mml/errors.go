package mml

import (
	"errors"
	"fmt"
	"strings"
)

var errAdsrRange = errors.New("adsr values out of range (4/3/3/5 bits)")

// FilePos is a 1-based line/column source location.
type FilePos struct {
	Line   int
	Column int
}

func (p FilePos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Error is a single located diagnostic. Channel is the channel letter or
// "!name" for subroutines, empty for header/instrument errors.
type Error struct {
	Pos     FilePos
	Channel string
	Message string
}

func (e *Error) Error() string {
	if e.Channel != "" {
		return fmt.Sprintf("%s: channel %s: %s", e.Pos, e.Channel, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// ErrorList aggregates every diagnostic found in one compile. The compiler
// keeps parsing after recoverable errors so a single run reports them all.
type ErrorList struct {
	Errors []*Error
}

func (l *ErrorList) add(pos FilePos, channel, format string, args ...interface{}) {
	l.Errors = append(l.Errors, &Error{
		Pos:     pos,
		Channel: channel,
		Message: fmt.Sprintf(format, args...),
	})
}

func (l *ErrorList) Len() int { return len(l.Errors) }

func (l *ErrorList) Error() string {
	switch len(l.Errors) {
	case 0:
		return "no errors"
	case 1:
		return l.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors:", len(l.Errors))
	for _, e := range l.Errors {
		sb.WriteString("\n  ")
		sb.WriteString(e.Error())
	}
	return sb.String()
}
