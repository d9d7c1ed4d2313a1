package cache

import (
	"regexp"
	"strings"
)

// globToRegexp compiles a glob pattern into an anchored regular
// expression. Only "*" is special and matches any run of characters;
// every other character matches literally.
func globToRegexp(pattern string) (*regexp.Regexp, error) {
	segments := strings.Split(pattern, "*")
	for i, segment := range segments {
		segments[i] = regexp.QuoteMeta(segment)
	}
	return regexp.Compile("^" + strings.Join(segments, ".*") + "$")
}
