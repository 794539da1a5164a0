// Package treeprop materialises tag-implication edges onto files: if a
// file carries a child tag and a (child, parent) edge exists, the file
// must also carry the parent tag, attributed to the edge that caused it.
// The closure runs to a fixed point so that chains of implications
// (A implies B implies C) propagate all the way up.
package treeprop

import (
	"context"
	"fmt"

	"github.com/awtfdb/awtfdb/internal/store"
)

// edge is one tag_implications row.
type edge struct {
	rowID  int64
	parent string
}

// Stats summarises one Run.
type Stats struct {
	FilesScanned int
	TagsAdded    int
}

// Processor closes the parent-tag implication graph over a set of files.
type Processor struct {
	db *store.Store
}

// New returns a Processor bound to db.
func New(db *store.Store) *Processor {
	return &Processor{db: db}
}

// Run closes parent-tag implications over fileScope (a list of file
// hashes), or every file that carries at least one tag when fileScope is
// empty.
func (p *Processor) Run(ctx context.Context, fileScope []string) (Stats, error) {
	implications, err := p.loadImplications(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("load tag implications: %w", err)
	}
	if len(implications) == 0 {
		return Stats{}, nil
	}

	files, err := p.resolveScope(ctx, fileScope)
	if err != nil {
		return Stats{}, fmt.Errorf("resolve file scope: %w", err)
	}

	var stats Stats
	for _, file := range files {
		added, err := p.closeFile(ctx, file, implications)
		if err != nil {
			return stats, fmt.Errorf("close file %s: %w", file, err)
		}
		stats.FilesScanned++
		stats.TagsAdded += added
	}
	return stats, nil
}

// loadImplications builds the child -> [(parent, edge row id)] map used to
// expand the working set during closeFile.
func (p *Processor) loadImplications(ctx context.Context) (map[string][]edge, error) {
	rows, err := p.db.DB().QueryContext(ctx, `SELECT row_id, child_tag, parent_tag FROM tag_implications`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]edge)
	for rows.Next() {
		var rowID int64
		var child, parent string
		if err := rows.Scan(&rowID, &child, &parent); err != nil {
			return nil, err
		}
		out[child] = append(out[child], edge{rowID: rowID, parent: parent})
	}
	return out, rows.Err()
}

func (p *Processor) resolveScope(ctx context.Context, fileScope []string) ([]string, error) {
	if len(fileScope) > 0 {
		return fileScope, nil
	}

	rows, err := p.db.DB().QueryContext(ctx, `SELECT DISTINCT file_hash FROM tag_files`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var fh string
		if err := rows.Scan(&fh); err != nil {
			return nil, err
		}
		out = append(out, fh)
	}
	return out, rows.Err()
}

// closeFile runs the working-set fixed point for one file: starting from
// its current tags, repeatedly expand through implications until a full
// pass adds nothing new, then materialise every inferred (parent, edge)
// pair not already present as a tag_files row.
func (p *Processor) closeFile(ctx context.Context, file string, implications map[string][]edge) (int, error) {
	originalTags, err := p.db.FetchFileTags(ctx, file)
	if err != nil {
		return 0, err
	}

	type key struct {
		parent string
		rowID  int64
	}
	working := make(map[key]struct{})

	expand := func(tag string) bool {
		grew := false
		for _, e := range implications[tag] {
			k := key{parent: e.parent, rowID: e.rowID}
			if _, ok := working[k]; !ok {
				working[k] = struct{}{}
				grew = true
			}
		}
		return grew
	}

	for {
		grew := false
		for _, tag := range originalTags {
			if expand(tag) {
				grew = true
			}
		}
		for k := range working {
			if expand(k.parent) {
				grew = true
			}
		}
		if !grew {
			break
		}
	}

	alreadyTagged := make(map[string]struct{}, len(originalTags))
	for _, t := range originalTags {
		alreadyTagged[t] = struct{}{}
	}

	added := 0
	for k := range working {
		if _, ok := alreadyTagged[k.parent]; ok {
			continue
		}
		err := p.db.AddTag(ctx, file, k.parent, store.TagParentingSource(k.rowID))
		if err != nil {
			return added, fmt.Errorf("materialise parent tag %s: %w", k.parent, err)
		}
		// A later edge implying the same parent is a PK-conflict no-op
		// inside AddTag; the first successful insert's source wins, so we
		// must not revisit this parent for a different rowID.
		alreadyTagged[k.parent] = struct{}{}
		added++
	}
	return added, nil
}
