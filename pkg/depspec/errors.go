package depspec

import "fmt"

// DepStringError is returned for any malformed dependency string. Text is
// the offending token (or the whole input for unbalanced groups) and
// Position its byte offset in the input.
type DepStringError struct {
	Message  string
	Text     string
	Position int
}

func (e *DepStringError) Error() string {
	return fmt.Sprintf("bad dependency string: %s: %q at position %d", e.Message, e.Text, e.Position)
}
