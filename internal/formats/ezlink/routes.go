package ezlink

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

//go:embed routes.toml
var defaultRoutesTOML []byte

type routeFile struct {
	Operator string   `toml:"operator"`
	Bus      []string `toml:"bus"`
}

// Routes is an immutable set of known bus route codes.
type Routes struct {
	operator string
	bus      map[string]struct{}
}

var (
	defaultOnce   sync.Once
	defaultRoutes *Routes
)

// DefaultRoutes returns the embedded route table. It panics if the embedded
// resource is malformed, which the package tests rule out.
func DefaultRoutes() *Routes {
	defaultOnce.Do(func() {
		r, err := parseRoutes(defaultRoutesTOML)
		if err != nil {
			panic(fmt.Sprintf("ezlink: embedded routes: %v", err))
		}
		defaultRoutes = r
	})
	return defaultRoutes
}

func LoadRoutes(r io.Reader) (*Routes, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return parseRoutes(data)
}

func LoadRoutesFile(path string) (*Routes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseRoutes(data)
}

func parseRoutes(data []byte) (*Routes, error) {
	var f routeFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("ezlink: parse routes: %w", err)
	}
	if len(f.Bus) == 0 {
		return nil, fmt.Errorf("ezlink: route table has no bus routes")
	}
	set := make(map[string]struct{}, len(f.Bus))
	for _, code := range f.Bus {
		if code == "" {
			return nil, fmt.Errorf("ezlink: empty route code")
		}
		set[code] = struct{}{}
	}
	return &Routes{operator: f.Operator, bus: set}, nil
}

func (r *Routes) IsBus(code string) bool {
	_, ok := r.bus[code]
	return ok
}

func (r *Routes) Len() int { return len(r.bus) }

func (r *Routes) Operator() string { return r.operator }
