package query

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Compiled is the SQL statement and its positional arguments produced by
// Compile. Arguments are either tag texts (resolved by the caller via
// fetchNamedTag into core ids) or raw 32-byte hash digests (resolved via
// fetchHashId); the caller substitutes each before execution.
type Compiled struct {
	SQL       string
	Arguments []any
}

const (
	hashPrefix    = "hash:"
	lowTagsPrefix = "system:low_tags:"
	randomForm    = "system:random"
)

// Compile parses input and translates it into a parameterised SQL
// statement selecting distinct file_hash values from tag_files.
func Compile(input string) (Compiled, error) {
	q, err := NewParser(input).Parse()
	if err != nil {
		return Compiled{}, err
	}
	return compileQuery(q)
}

func compileQuery(q Query) (Compiled, error) {
	var sql strings.Builder
	sql.WriteString("select distinct file_hash from tag_files")

	var args []any
	for i, ot := range q {
		switch ot.Op {
		case OpNone:
			sql.WriteString(" where")
		case OpOr:
			sql.WriteString(" or")
		case OpAnd:
			sql.WriteString(" intersect select file_hash from tag_files where")
		case OpNot:
			if i == 0 {
				sql.WriteString(" where true")
			}
			sql.WriteString(" except select file_hash from tag_files where")
		}

		frag, arg, err := compileTerm(ot.Term)
		if err != nil {
			return Compiled{}, err
		}
		sql.WriteString(frag)
		if arg != nil {
			args = append(args, arg)
		}
	}

	return Compiled{SQL: sql.String(), Arguments: args}, nil
}

// compileTerm returns the SQL fragment for one term and its argument, if
// any (system:random and system:low_tags embed their operand directly in
// the fragment and report a nil argument; hash: reports the decoded digest).
func compileTerm(t Term) (string, any, error) {
	if t.Raw {
		return " core_hash = ?", t.Text, nil
	}

	switch {
	case strings.HasPrefix(t.Text, hashPrefix):
		return compileHashTerm(t)
	case t.Text == randomForm:
		return " core_hash = (select core_hash from tag_names order by random() limit 1)", nil, nil
	case strings.HasPrefix(t.Text, lowTagsPrefix):
		return compileLowTagsTerm(t)
	default:
		return " core_hash = ?", t.Text, nil
	}
}

func compileHashTerm(t Term) (string, any, error) {
	hexDigits := t.Text[len(hashPrefix):]
	end := t.Pos + len(t.Text)
	if len(hexDigits) != 64 {
		return "", nil, &InvalidHashScopedTagError{Pos: end}
	}
	raw, err := hex.DecodeString(hexDigits)
	if err != nil {
		return "", nil, &InvalidHashScopedTagError{Pos: end}
	}
	return " file_hash = ?", raw, nil
}

func compileLowTagsTerm(t Term) (string, any, error) {
	nStr := t.Text[len(lowTagsPrefix):]
	end := t.Pos + len(t.Text)
	n, err := strconv.Atoi(nStr)
	if err != nil || n < 0 {
		return "", nil, &UnexpectedCharacterError{Pos: end}
	}
	return fmt.Sprintf(
		" (select count(*) from tag_files tf2 where tf2.file_hash = tag_files.file_hash) < %d", n,
	), nil, nil
}
