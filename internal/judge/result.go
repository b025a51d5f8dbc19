// Package judge models the judging outcome of a submission and the live
// progress reported while it is being graded.
package judge

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Result is a judging status code as reported by the site. Codes up to and
// including Judging are in flight; every larger defined code is terminal.
//
// The code is unexported so that the only Results in existence are the
// declared ones and those returned by ParseResult. The zero value is
// PendingJudge.
type Result struct {
	code int8
}

// Defined results. The numbering follows the site and has gaps.
var (
	PendingJudge      = Result{0}
	PendingRejudge    = Result{1}
	PreparingJudge    = Result{2}
	Judging           = Result{3}
	Accepted          = Result{4}
	PresentationError = Result{5}
	WrongAnswer       = Result{6}
	TimeExceeded      = Result{7}
	MemoryExceeded    = Result{8}
	OutputExceeded    = Result{9}
	RuntimeError      = Result{10}
	CompileError      = Result{11}
	Unavailable       = Result{12}
	PartiallyAccepted = Result{15}
)

// ErrUnknownResult is returned when a code outside the defined set is seen.
var ErrUnknownResult = errors.New("unknown judge result")

// Color is an ANSI foreground color code.
type Color int

// Colors used for status lines.
const (
	ColorRed           Color = 31
	ColorGreen         Color = 32
	ColorWhite         Color = 37
	ColorBrightBlack   Color = 90
	ColorBrightRed     Color = 91
	ColorBrightYellow  Color = 93
	ColorBrightMagenta Color = 95
)

// Sprint wraps s in the escape sequence for c.
func (c Color) Sprint(s string) string {
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", int(c), s)
}

// AllResults lists every defined result in code order.
func AllResults() []Result {
	return []Result{
		PendingJudge, PendingRejudge, PreparingJudge, Judging,
		Accepted, PresentationError, WrongAnswer, TimeExceeded,
		MemoryExceeded, OutputExceeded, RuntimeError, CompileError,
		Unavailable, PartiallyAccepted,
	}
}

// ParseResult validates a raw code.
func ParseResult(code int) (Result, error) {
	for _, r := range AllResults() {
		if int(r.code) == code {
			return r, nil
		}
	}
	return Result{}, fmt.Errorf("%w: %d", ErrUnknownResult, code)
}

// Code is the numeric code the site uses for r.
func (r Result) Code() int {
	return int(r.code)
}

// Valid reports whether r is a defined result.
func (r Result) Valid() bool {
	_, err := ParseResult(r.Code())
	return err == nil
}

// IsTerminal reports whether judging has finished.
func (r Result) IsTerminal() bool {
	return r.code > Judging.code
}

func (r Result) String() string {
	switch r {
	case PendingJudge:
		return "PENDING_JUDGE"
	case PendingRejudge:
		return "PENDING_REJUDGE"
	case PreparingJudge:
		return "PREPARING_JUDGE"
	case Judging:
		return "JUDGING"
	case Accepted:
		return "ACCEPTED"
	case PresentationError:
		return "PRESENTATION_ERROR"
	case WrongAnswer:
		return "WRONG_ANSWER"
	case TimeExceeded:
		return "TIME_EXCEEDED"
	case MemoryExceeded:
		return "MEMORY_EXCEEDED"
	case OutputExceeded:
		return "OUTPUT_EXCEEDED"
	case RuntimeError:
		return "RUNTIME_ERROR"
	case CompileError:
		return "COMPILE_ERROR"
	case Unavailable:
		return "UNAVAILABLE"
	case PartiallyAccepted:
		return "PARTIALLY_ACCEPTED"
	}
	panic(undefined(r))
}

// Message is the status line the site shows for r.
func (r Result) Message() string {
	switch r {
	case PendingJudge:
		return "기다리는 중"
	case PendingRejudge:
		return "재채점을 기다리는 중"
	case PreparingJudge:
		return "채점 준비 중"
	case Judging:
		return "채점 중"
	case Accepted:
		return "맞았습니다!"
	case PresentationError:
		return "출력 형식이 잘못되었습니다"
	case WrongAnswer:
		return "틀렸습니다"
	case TimeExceeded:
		return "시간 초과"
	case MemoryExceeded:
		return "메모리 초과"
	case OutputExceeded:
		return "출력 초과"
	case RuntimeError:
		return "런타임 오류"
	case CompileError:
		return "컴파일 오류"
	case Unavailable:
		return "채점 불가능"
	case PartiallyAccepted:
		return "일부만 맞았습니다!"
	}
	panic(undefined(r))
}

// Color is the severity color of r.
func (r Result) Color() Color {
	switch r {
	case PendingJudge, PendingRejudge, Unavailable:
		return ColorBrightBlack
	case PreparingJudge, Judging:
		return ColorWhite
	case Accepted:
		return ColorGreen
	case WrongAnswer:
		return ColorRed
	case PresentationError, TimeExceeded, MemoryExceeded, OutputExceeded:
		return ColorBrightRed
	case RuntimeError, CompileError:
		return ColorBrightMagenta
	case PartiallyAccepted:
		return ColorBrightYellow
	}
	panic(undefined(r))
}

// MarshalJSON encodes r as its numeric code.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Code())
}

// UnmarshalJSON accepts only defined codes.
func (r *Result) UnmarshalJSON(data []byte) error {
	var code int
	if err := json.Unmarshal(data, &code); err != nil {
		return fmt.Errorf("%w: %w", ErrUnknownResult, err)
	}
	parsed, err := ParseResult(code)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// undefined is unreachable outside this package: every Result is declared
// above or came from ParseResult.
func undefined(r Result) error {
	return fmt.Errorf("%w: %d", ErrUnknownResult, r.code)
}
