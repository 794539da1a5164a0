// Package library implements the lazily-loaded library_configuration
// field bag, currently holding a single key: the PCRE pattern tag names
// must fully match.
package library

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/dlclark/regexp2"
)

// TagNameRegexKey is the only library_configuration key the store reads
// today; other keys are reserved for future use.
const TagNameRegexKey = "tag_name_regex"

// querier is the subset of *sql.DB / *sql.Tx the cache needs, so it can be
// loaded through either a standalone connection or an open transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Config caches the compiled tag_name_regex pattern so that verifying a tag
// name does not recompile the pattern on every call.
type Config struct {
	mu      sync.RWMutex
	pattern *regexp2.Regexp // nil means no regex configured
	loaded  bool
}

// NewConfig returns an empty, not-yet-loaded cache.
func NewConfig() *Config {
	return &Config{}
}

// Invalidate drops the cached compiled pattern, forcing the next Verify
// call to reload and recompile it from storage.
func (c *Config) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.pattern = nil
}

// load fetches and compiles tag_name_regex from storage if not already
// cached. regexp2 compiles PCRE-class patterns including Unicode property
// classes (\p{L}, etc.), which Go's RE2-based regexp package cannot
// express.
func (c *Config) load(ctx context.Context, db querier) error {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return nil
	}

	var raw string
	err := db.QueryRowContext(ctx,
		`SELECT value FROM library_configuration WHERE key = ?`, TagNameRegexKey).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
		c.pattern = nil
	case err != nil:
		return fmt.Errorf("library: load tag_name_regex: %w", err)
	default:
		re, compileErr := regexp2.Compile(raw, regexp2.None)
		if compileErr != nil {
			return fmt.Errorf("library: compile tag_name_regex %q: %w", raw, compileErr)
		}
		c.pattern = re
	}
	c.loaded = true
	return nil
}

// Verify checks that text fully matches the configured tag_name_regex, if
// any is configured. It returns (true, "", nil) when no regex is configured
// (anything is valid), or (matched, matchedSpan, nil) when one is. When the
// text does not match end-to-end, matched is false.
func (c *Config) Verify(ctx context.Context, db querier, text string) (matched bool, matchedSpan string, err error) {
	if err := c.load(ctx, db); err != nil {
		return false, "", err
	}

	c.mu.RLock()
	pattern := c.pattern
	c.mu.RUnlock()

	if pattern == nil {
		return true, "", nil
	}

	m, err := pattern.FindStringMatch(text)
	if err != nil {
		return false, "", fmt.Errorf("library: match tag name: %w", err)
	}
	if m == nil {
		return false, "", nil
	}
	// "Matches the ENTIRE text" - anchor both ends of the match span.
	// regexp2 reports Index/Length in runes, so compare the matched text
	// itself rather than its length against len(text) in bytes.
	if m.Index != 0 || m.String() != text {
		return false, m.String(), nil
	}
	return true, m.String(), nil
}

// Set stores a library configuration value and invalidates any cached
// compiled pattern for it.
func (c *Config) Set(ctx context.Context, db querier, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO library_configuration (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("library: set %s: %w", key, err)
	}
	if key == TagNameRegexKey {
		c.Invalidate()
	}
	return nil
}

// Get returns the raw configured value for key, if any.
func (c *Config) Get(ctx context.Context, db querier, key string) (string, bool, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM library_configuration WHERE key = ?`, key).Scan(&value)
	switch {
	case err == sql.ErrNoRows:
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("library: get %s: %w", key, err)
	default:
		return value, true, nil
	}
}
