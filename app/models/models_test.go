package models_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/ctxflow/app/models"
	"github.com/shashiranjanraj/ctxflow/pkg/container"
	"github.com/shashiranjanraj/ctxflow/pkg/ctx"
)

func newExchange() *ctx.Context {
	return ctx.New(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestRequestContextIsScoped(t *testing.T) {
	c := container.New()
	models.RegisterRequestContext(c)

	a, b := newExchange(), newExchange()
	sa, sb := c.NewScope(), c.NewScope()
	defer sa.Close()
	defer sb.Close()
	a.AttachScope(sa)
	b.AttachScope(sb)

	rcA1, err := models.CurrentRequestContext(a)
	require.NoError(t, err)
	rcA2, err := models.CurrentRequestContext(a)
	require.NoError(t, err)
	rcB, err := models.CurrentRequestContext(b)
	require.NoError(t, err)

	assert.Same(t, rcA1, rcA2)
	assert.NotSame(t, rcA1, rcB)

	_, err = c.Lookup(models.RequestContextKey)
	assert.ErrorIs(t, err, container.ErrScopeRequired)
}

func TestParamSideTable(t *testing.T) {
	x := newExchange()
	before := models.ParamEntries()

	_, ok := models.Param(x)
	assert.False(t, ok)

	models.SetParam(x, "a")
	models.SetParam(x, "b")
	v, ok := models.Param(x)
	require.True(t, ok)
	assert.Equal(t, "b", v)
	assert.Equal(t, before+1, models.ParamEntries())

	x.Release()
	_, ok = models.Param(x)
	assert.False(t, ok)
	assert.Equal(t, before, models.ParamEntries())
}

func TestParamKeyedByIdentity(t *testing.T) {
	a, b := newExchange(), newExchange()
	defer a.Release()
	defer b.Release()

	models.SetParam(a, "a")
	_, ok := models.Param(b)
	assert.False(t, ok)
}
