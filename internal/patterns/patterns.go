// Package patterns decides whether a project-relative path is part of the
// project tree, given an ordered list of include and "!"-prefixed exclude globs.
package patterns

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// ExclusionPrefix marks a pattern as an exclusion rule.
	ExclusionPrefix = "!"
	// CommentPrefix marks a pattern file line that is ignored.
	CommentPrefix = "#"

	pathSeparator = "/"
	anyDepth      = "**/"
)

// rule is one configured pattern expanded into the glob forms it stands for.
type rule struct {
	source string
	forms  []string
	// directoryForms hold the directory globs of a trailing-slash or "/**" pattern.
	directoryForms []string
}

// Matcher evaluates paths against a compiled pattern list.
// The zero value has no patterns and includes everything.
type Matcher struct {
	inclusions []rule
	exclusions []rule
}

// Compile validates and expands patterns. Blank lines and comments are skipped.
// A malformed glob is reported as an error naming the offending pattern.
func Compile(patternList []string) (*Matcher, error) {
	matcher := &Matcher{}
	for _, rawPattern := range patternList {
		trimmedPattern := strings.TrimSpace(rawPattern)
		if trimmedPattern == "" || strings.HasPrefix(trimmedPattern, CommentPrefix) {
			continue
		}
		isExclusion := strings.HasPrefix(trimmedPattern, ExclusionPrefix)
		body := strings.TrimPrefix(trimmedPattern, ExclusionPrefix)
		compiledRule, compileError := compileRule(body)
		if compileError != nil {
			return nil, fmt.Errorf("pattern %q: %w", trimmedPattern, compileError)
		}
		if compiledRule == nil {
			continue
		}
		if isExclusion {
			matcher.exclusions = append(matcher.exclusions, *compiledRule)
		} else {
			matcher.inclusions = append(matcher.inclusions, *compiledRule)
		}
	}
	return matcher, nil
}

// ShouldInclude reports whether relativePath is included by patternList.
// Malformed patterns never match.
func ShouldInclude(relativePath string, patternList []string) bool {
	matcher := &Matcher{}
	for _, pattern := range patternList {
		single, compileError := Compile([]string{pattern})
		if compileError != nil {
			continue
		}
		matcher.inclusions = append(matcher.inclusions, single.inclusions...)
		matcher.exclusions = append(matcher.exclusions, single.exclusions...)
	}
	if len(matcher.inclusions) == 0 && len(matcher.exclusions) == 0 && hasAnyPattern(patternList) {
		// every configured pattern was malformed; nothing can match an inclusion
		return false
	}
	return matcher.Includes(relativePath)
}

// IsEmpty reports whether no pattern was configured.
func (matcher *Matcher) IsEmpty() bool {
	return matcher == nil || (len(matcher.inclusions) == 0 && len(matcher.exclusions) == 0)
}

// Includes reports whether relativePath belongs to the tree.
//
// With no patterns every path is included. Otherwise a path ending in "/" is a
// bare directory entry and is never included, any exclusion match wins
// regardless of its position in the list, and the path must match at least one
// inclusion.
func (matcher *Matcher) Includes(relativePath string) bool {
	if matcher.IsEmpty() {
		return true
	}
	normalizedPath := normalize(relativePath)
	if strings.HasSuffix(normalizedPath, pathSeparator) {
		return false
	}
	normalizedPath = strings.TrimPrefix(normalizedPath, "./")
	for _, exclusion := range matcher.exclusions {
		if exclusion.matches(normalizedPath) {
			return false
		}
	}
	for _, inclusion := range matcher.inclusions {
		if inclusion.matches(normalizedPath) {
			return true
		}
	}
	return false
}

// ExcludesDirectory reports whether every path below the directory at
// relativePath is excluded by a directory exclusion such as "!build/" or "!venv/**".
// Walkers use it to avoid descending into directories that would be pruned anyway.
func (matcher *Matcher) ExcludesDirectory(relativePath string) bool {
	if matcher == nil {
		return false
	}
	normalizedPath := strings.TrimSuffix(normalize(relativePath), pathSeparator)
	for _, exclusion := range matcher.exclusions {
		for _, directoryForm := range exclusion.directoryForms {
			if globMatch(directoryForm, normalizedPath) {
				return true
			}
		}
	}
	return false
}

// Patterns returns the source patterns in evaluation order: exclusions first.
func (matcher *Matcher) Patterns() []string {
	if matcher == nil {
		return nil
	}
	var sources []string
	for _, exclusion := range matcher.exclusions {
		sources = append(sources, ExclusionPrefix+exclusion.source)
	}
	for _, inclusion := range matcher.inclusions {
		sources = append(sources, inclusion.source)
	}
	return sources
}

func compileRule(body string) (*rule, error) {
	normalizedBody := normalize(body)
	anchored := strings.HasPrefix(normalizedBody, pathSeparator)
	normalizedBody = strings.TrimLeft(normalizedBody, pathSeparator)
	if normalizedBody == "" {
		return nil, nil
	}

	compiledRule := &rule{source: body}
	if strings.HasSuffix(normalizedBody, pathSeparator) {
		// directory patterns stay rooted: "build/" never matches "src/build/x"
		prefix := strings.TrimRight(normalizedBody, pathSeparator)
		compiledRule.directoryForms = []string{prefix}
		compiledRule.forms = []string{prefix + "/**/*", prefix + "/*"}
	} else {
		compiledRule.forms = []string{normalizedBody}
		if strings.HasSuffix(normalizedBody, "/**") {
			compiledRule.directoryForms = []string{strings.TrimSuffix(normalizedBody, "/**")}
		}
		// unanchored globs match from the right, so "src/b.py" also matches "pkg/src/b.py"
		if !anchored && !strings.HasPrefix(normalizedBody, anyDepth) {
			compiledRule.forms = append(compiledRule.forms, anyDepth+normalizedBody)
			if len(compiledRule.directoryForms) > 0 {
				compiledRule.directoryForms = append(compiledRule.directoryForms, anyDepth+compiledRule.directoryForms[0])
			}
		}
	}

	for _, form := range compiledRule.forms {
		if !doublestar.ValidatePattern(form) {
			return nil, fmt.Errorf("invalid glob %q", form)
		}
	}
	return compiledRule, nil
}

func (compiledRule rule) matches(normalizedPath string) bool {
	for _, form := range compiledRule.forms {
		if globMatch(form, normalizedPath) {
			return true
		}
	}
	return false
}

func globMatch(pattern, normalizedPath string) bool {
	isMatched, matchError := doublestar.Match(pattern, normalizedPath)
	return matchError == nil && isMatched
}

func normalize(path string) string {
	return strings.ReplaceAll(path, "\\", pathSeparator)
}

func hasAnyPattern(patternList []string) bool {
	for _, pattern := range patternList {
		trimmedPattern := strings.TrimSpace(pattern)
		if trimmedPattern != "" && !strings.HasPrefix(trimmedPattern, CommentPrefix) {
			return true
		}
	}
	return false
}
