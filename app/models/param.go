package models

import (
	"github.com/shashiranjanraj/ctxflow/pkg/ctx"
	"github.com/shashiranjanraj/ctxflow/pkg/sidetable"
)

// params associates the route parameter with the exchange itself, outside
// both the container and the exchange bag.
var params = sidetable.New[ctx.Context, string]()

// SetParam records v against x. The entry is dropped when x is released.
func SetParam(x *ctx.Context, v string) {
	if _, exists := params.Get(x); !exists {
		x.OnRelease(func() { params.Delete(x) })
	}
	params.Set(x, v)
}

// Param returns the value recorded against x.
func Param(x *ctx.Context) (string, bool) {
	return params.Get(x)
}

// ParamEntries reports how many exchanges currently have an entry.
func ParamEntries() int {
	return params.Len()
}
