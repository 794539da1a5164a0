package store

import "fmt"

// ConfigFailError wraps a failure to open or configure the underlying
// store; always fatal.
type ConfigFailError struct {
	Err error
}

func (e *ConfigFailError) Error() string {
	return fmt.Sprintf("store: config failed: %v", e.Err)
}

func (e *ConfigFailError) Unwrap() error { return e.Err }

// FailedIntegrityCheckError reports a non-"ok" PRAGMA integrity_check
// result, surfaced by both the migration runner and the janitor.
type FailedIntegrityCheckError struct {
	Detail string
}

func (e *FailedIntegrityCheckError) Error() string {
	return fmt.Sprintf("store: integrity check failed: %s", e.Detail)
}

// FailedForeignKeyCheckError reports at least one PRAGMA foreign_key_check
// violation, surfaced by both the migration runner and the janitor.
type FailedForeignKeyCheckError struct {
	Violations []ForeignKeyViolation
}

// ForeignKeyViolation is one row of a PRAGMA foreign_key_check result.
type ForeignKeyViolation struct {
	Table           string
	RowID           int64
	Parent          string
	ConstraintIndex int64
}

func (e *FailedForeignKeyCheckError) Error() string {
	if len(e.Violations) == 0 {
		return "store: foreign key check failed"
	}
	return fmt.Sprintf("store: foreign key check failed: %d violation(s), first in table %q",
		len(e.Violations), e.Violations[0].Table)
}

// InvalidTagNameError reports a tag text that does not fully match the
// library's tag_name_regex. MatchedSpan holds the first (leftmost) subspan
// the pattern matched, or "" if nothing matched at all.
type InvalidTagNameError struct {
	Regex       string
	Text        string
	MatchedSpan string
}

func (e *InvalidTagNameError) Error() string {
	if e.MatchedSpan == "" {
		return fmt.Sprintf("store: tag name %q does not match %q", e.Text, e.Regex)
	}
	return fmt.Sprintf("store: tag name %q only partially matches %q (matched %q)",
		e.Text, e.Regex, e.MatchedSpan)
}

// UnknownTagError reports a query or operation referencing a tag that has
// no matching tag_names row. Recoverable: the CLI layer decides how to
// surface it.
type UnknownTagError struct {
	Text     string
	Language string
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("store: unknown tag %q (language %q)", e.Text, e.Language)
}

// UnknownFileError reports a query or operation referencing a file hash
// with no matching hashes row.
type UnknownFileError struct {
	Hash string
}

func (e *UnknownFileError) Error() string {
	return fmt.Sprintf("store: unknown file hash %q", e.Hash)
}

// InvalidByteAmountError reports a malformed janitor size argument, e.g.
// "--hash-files-smaller-than" with a suffix other than K, M, or G.
type InvalidByteAmountError struct {
	Input string
}

func (e *InvalidByteAmountError) Error() string {
	return fmt.Sprintf("store: invalid byte amount %q", e.Input)
}

// ManualInterventionRequiredError reports a janitor repair that cannot
// proceed safely without an operator decision; the enclosing transaction
// is aborted.
type ManualInterventionRequiredError struct {
	Reason string
}

func (e *ManualInterventionRequiredError) Error() string {
	return fmt.Sprintf("store: manual intervention required: %s", e.Reason)
}

// UnrepairableTagNameError reports a tag_names row that the janitor cannot
// bring back into agreement with tag_name_regex automatically.
type UnrepairableTagNameError struct {
	Text string
}

func (e *UnrepairableTagNameError) Error() string {
	return fmt.Sprintf("store: tag name %q is not automatically repairable", e.Text)
}

// InconsistentIndexError reports a files/hashes cross-reference that
// points at a row that does not exist on the other side; fatal during the
// janitor's structural checks.
type InconsistentIndexError struct {
	Detail string
}

func (e *InconsistentIndexError) Error() string {
	return fmt.Sprintf("store: inconsistent index: %s", e.Detail)
}
