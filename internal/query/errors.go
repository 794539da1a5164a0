package query

import "fmt"

// UnexpectedCharacterError reports that no lexer rule matched at Pos.
type UnexpectedCharacterError struct {
	Pos int
}

func (e *UnexpectedCharacterError) Error() string {
	return fmt.Sprintf("query: unexpected character at position %d", e.Pos)
}

// InvalidHashScopedTagError reports a malformed "hash:" term: anything
// other than exactly 64 hex characters after the prefix.
type InvalidHashScopedTagError struct {
	Pos int
}

func (e *InvalidHashScopedTagError) Error() string {
	return fmt.Sprintf("query: invalid hash-scoped tag at position %d", e.Pos)
}
