// Package builtin assembles the default format registry.
package builtin

import (
	"github.com/danmuck/farectl/internal/formats"
	"github.com/danmuck/farectl/internal/formats/ezlink"
	"github.com/danmuck/farectl/internal/formats/stub"
)

// Registry returns full decoders first, then stubs. A nil routes table uses
// the embedded one.
func Registry(routes *ezlink.Routes) (*formats.Registry, error) {
	r := formats.NewRegistry()
	for _, f := range []formats.Format{
		ezlink.New(routes),
		stub.Metrocard(),
		stub.ATHop(),
	} {
		if err := r.Register(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}
