package runner

import (
	"fmt"

	"github.com/gobwas/glob"
)

// TagFilter selects scenarios by tag. A scenario runs when it matches at
// least one include pattern (or there are none) and no exclude pattern.
type TagFilter struct {
	include []glob.Glob
	exclude []glob.Glob
}

// NewTagFilter compiles glob patterns such as "@smoke" or "@wip*".
func NewTagFilter(include, exclude []string) (*TagFilter, error) {
	inc, err := compileTags(include)
	if err != nil {
		return nil, err
	}
	exc, err := compileTags(exclude)
	if err != nil {
		return nil, err
	}
	return &TagFilter{include: inc, exclude: exc}, nil
}

// Match reports whether a scenario with tags should run.
func (f *TagFilter) Match(tags []string) bool {
	if f == nil {
		return true
	}
	if anyMatch(f.exclude, tags) {
		return false
	}
	return len(f.include) == 0 || anyMatch(f.include, tags)
}

func compileTags(patterns []string) ([]glob.Glob, error) {
	var globs []glob.Glob
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid tag pattern '%s': %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func anyMatch(globs []glob.Glob, tags []string) bool {
	for _, g := range globs {
		for _, tag := range tags {
			if g.Match(tag) {
				return true
			}
		}
	}
	return false
}
