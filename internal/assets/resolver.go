package assets

import (
	"path"
	"strings"
)

// Resolver turns asset names from the catalog into references under the
// deployment asset prefix. Every asset the program touches goes through it so
// the prefix is applied consistently.
type Resolver struct {
	Prefix string
}

// NewResolver normalizes prefix into "/segment/segment" form. An empty or "/"
// prefix resolves assets from the root.
func NewResolver(prefix string) Resolver {
	segments := splitPath(prefix)
	if len(segments) == 0 {
		return Resolver{}
	}
	return Resolver{Prefix: "/" + strings.Join(segments, "/")}
}

func (r Resolver) Config() string     { return r.join("config.json") }
func (r Resolver) Background() string { return r.join("bg.jpg") }
func (r Resolver) Logo() string       { return r.join("logo.png") }
func (r Resolver) Favicon() string    { return r.join("favicon-16x16.png") }
func (r Resolver) StopIcon() string   { return r.Icon("stop.png") }
func (r Resolver) AboutIcon() string  { return r.Icon("bonzi.png") }

// Icon resolves an icon file name from the catalog.
func (r Resolver) Icon(name string) string {
	return r.join("icons", name)
}

// Sound resolves a sound file name from the catalog.
func (r Resolver) Sound(name string) string {
	return r.join("sounds", name)
}

func (r Resolver) join(parts ...string) string {
	segments := splitPath(r.Prefix)
	for _, p := range parts {
		segments = append(segments, splitPath(p)...)
	}
	return "/" + path.Join(segments...)
}

func splitPath(p string) []string {
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" || part == "." {
			continue
		}
		out = append(out, part)
	}
	return out
}
