package conversion

import (
	"fmt"
	"strings"

	domain "fileconv/internal/domain/conversion"
)

// BackendName identifies a registered codec backend.
type BackendName string

const (
	BackendImageMagick BackendName = "imagemagick"
	BackendVips        BackendName = "vips"
	BackendFFmpeg      BackendName = "ffmpeg"
)

// FormatClass groups formats that share a routing rule.
type FormatClass string

const (
	ClassStandard FormatClass = "standard"
	ClassLegacy   FormatClass = "legacy"
)

// Route binds a (category, format class) pair to a backend.
type Route struct {
	Category domain.Category
	Class    FormatClass
	Backend  BackendName
}

type routeKey struct {
	category domain.Category
	class    FormatClass
}

// DefaultRoutes is the built-in routing table. Every category needs a
// ClassStandard route; it is the fallback for classes without their own.
func DefaultRoutes() []Route {
	return []Route{
		{Category: domain.CategoryImages, Class: ClassLegacy, Backend: BackendImageMagick},
		{Category: domain.CategoryImages, Class: ClassStandard, Backend: BackendVips},
		{Category: domain.CategorySounds, Class: ClassStandard, Backend: BackendFFmpeg},
		{Category: domain.CategoryVideos, Class: ClassStandard, Backend: BackendFFmpeg},
	}
}

// LegacyClasses maps each listed format to ClassLegacy.
func LegacyClasses(formats []string) map[string]FormatClass {
	out := make(map[string]FormatClass, len(formats))
	for _, f := range formats {
		if f = domain.NormalizeFormat(f); f != "" {
			out[f] = ClassLegacy
		}
	}
	return out
}

// Dispatcher selects the backend for a file.
type Dispatcher struct {
	routes   map[routeKey]BackendName
	classes  map[string]FormatClass
	backends map[BackendName]Converter
}

// NewDispatcher builds a dispatcher from a routing table, a format->class
// table and the registered backends.
func NewDispatcher(routes []Route, classes map[string]FormatClass, backends map[BackendName]Converter) *Dispatcher {
	d := &Dispatcher{
		routes:   make(map[routeKey]BackendName, len(routes)),
		classes:  make(map[string]FormatClass, len(classes)),
		backends: make(map[BackendName]Converter, len(backends)),
	}
	for _, r := range routes {
		d.routes[routeKey{r.Category, r.Class}] = r.Backend
	}
	for f, c := range classes {
		d.classes[strings.ToLower(f)] = c
	}
	for name, b := range backends {
		d.backends[name] = b
	}
	return d
}

// Classify returns the class of a conversion. A non-standard source class
// wins, then a non-standard target class.
func (d *Dispatcher) Classify(source, target string) FormatClass {
	if c, ok := d.classes[strings.ToLower(source)]; ok && c != ClassStandard {
		return c
	}
	if c, ok := d.classes[strings.ToLower(target)]; ok && c != ClassStandard {
		return c
	}
	return ClassStandard
}

// Supports reports whether the category has a usable default route.
func (d *Dispatcher) Supports(category domain.Category) bool {
	name, ok := d.routes[routeKey{category, ClassStandard}]
	if !ok {
		return false
	}
	_, ok = d.backends[name]
	return ok
}

// Select returns the backend for converting source to target in category.
func (d *Dispatcher) Select(category domain.Category, source, target string) (BackendName, Converter, error) {
	class := d.Classify(source, target)
	name, ok := d.routes[routeKey{category, class}]
	if !ok {
		name, ok = d.routes[routeKey{category, ClassStandard}]
	}
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedCategory, category)
	}
	backend, ok := d.backends[name]
	if !ok {
		return "", nil, fmt.Errorf("backend %s not registered", name)
	}
	return name, backend, nil
}
