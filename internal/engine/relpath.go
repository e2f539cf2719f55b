package engine

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

// ErrInvalidArgument is returned for empty or malformed path arguments.
var ErrInvalidArgument = errors.New("invalid argument")

var (
	schemePrefix = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9+.\-]+)://`)
	drivePrefix  = regexp.MustCompile(`^[A-Za-z]:[\\/]`)
)

// location is an absolute path split into the parts that decide whether two
// paths can be related at all.
type location struct {
	scheme   string
	volume   string
	segments []string
	fold     bool
}

// MakeRelativePath returns the path that leads from the directory holding
// from to the target to. Both must be absolute: a drive path (C:\x), a UNC
// path (\\host\share\x), a rooted path (/x) or a URI (scheme://host/x).
//
// When the two locations cannot be related (different schemes, drives or
// hosts) to is returned unchanged. A malformed to that contains an MSBuild
// property reference "$(" is also returned unchanged so that MSBuild can
// expand it later. File paths use backslash separators in the result.
func MakeRelativePath(from, to string) (string, error) {
	if from == "" {
		return "", fmt.Errorf("%w: from path is empty", ErrInvalidArgument)
	}
	if to == "" {
		return "", fmt.Errorf("%w: to path is empty", ErrInvalidArgument)
	}

	target, ok := parseLocation(to)
	if !ok {
		if strings.Contains(to, "$(") {
			return to, nil
		}
		return "", fmt.Errorf("%w: %q is not an absolute path", ErrInvalidArgument, to)
	}
	base, ok := parseLocation(from)
	if !ok {
		return "", fmt.Errorf("%w: %q is not an absolute path", ErrInvalidArgument, from)
	}

	if base.scheme != target.scheme || !strings.EqualFold(base.volume, target.volume) {
		return to, nil
	}
	if base.volume != target.volume && !base.fold {
		return to, nil
	}

	dir := base.segments
	if len(dir) > 0 && !strings.HasSuffix(from, "/") && !strings.HasSuffix(from, `\`) {
		dir = dir[:len(dir)-1]
	}

	common := 0
	for common < len(dir) && common < len(target.segments) && target.same(dir[common], target.segments[common]) {
		common++
	}

	parts := make([]string, 0, len(dir)-common+len(target.segments)-common)
	for range dir[common:] {
		parts = append(parts, "..")
	}
	parts = append(parts, target.segments[common:]...)
	if len(parts) == 0 {
		return ".", nil
	}

	sep := "/"
	if target.scheme == "file" {
		sep = `\`
	}
	return strings.Join(parts, sep), nil
}

func (l location) same(a, b string) bool {
	if l.fold {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func parseLocation(p string) (location, bool) {
	if m := schemePrefix.FindStringSubmatch(p); m != nil {
		rest := p[len(m[0]):]
		host, tail, _ := strings.Cut(rest, "/")
		scheme := strings.ToLower(m[1])
		if scheme == "file" {
			return location{scheme: scheme, volume: host, segments: split(tail), fold: true}, true
		}
		return location{scheme: scheme, volume: strings.ToLower(host), segments: split(tail)}, true
	}

	slashed := strings.ReplaceAll(p, `\`, "/")
	switch {
	case drivePrefix.MatchString(p):
		return location{scheme: "file", volume: strings.ToUpper(p[:2]), segments: split(slashed[2:]), fold: true}, true
	case strings.HasPrefix(slashed, "//"):
		host, tail, _ := strings.Cut(slashed[2:], "/")
		share, tail, _ := strings.Cut(tail, "/")
		if host == "" || share == "" {
			return location{}, false
		}
		return location{scheme: "file", volume: `\\` + host + `\` + share, segments: split(tail), fold: true}, true
	case strings.HasPrefix(slashed, "/"):
		return location{scheme: "file", segments: split(slashed)}, true
	}
	return location{}, false
}

// split cleans a slash-separated path and returns its non-empty segments.
func split(p string) []string {
	cleaned := path.Clean("/" + p)
	if cleaned == "/" {
		return nil
	}
	return strings.Split(cleaned[1:], "/")
}
