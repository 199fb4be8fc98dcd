package result_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/ctxflow/pkg/result"
)

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusOK, result.OK("hi").StatusCode())
	assert.Equal(t, http.StatusOK, result.Result{}.StatusCode())
	assert.Equal(t, http.StatusCreated, result.New(http.StatusCreated, nil).StatusCode())
	assert.Equal(t, http.StatusInternalServerError, result.Fault(errors.New("x")).StatusCode())
	assert.Equal(t, http.StatusInternalServerError, result.Result{Err: errors.New("x")}.StatusCode())
	assert.Equal(t, http.StatusNotFound, result.New(http.StatusNotFound, "route not found").StatusCode())
	assert.False(t, result.New(http.StatusNotFound, nil).Faulted())
}

func TestFaultNilErrorStillFaults(t *testing.T) {
	r := result.Fault(nil)
	assert.True(t, r.Faulted())
	assert.False(t, result.OK(nil).Faulted())
}

func TestPanicErrorUnwrap(t *testing.T) {
	sentinel := errors.New("boom")
	pe := &result.PanicError{Value: sentinel}
	assert.ErrorIs(t, pe, sentinel)
	assert.Equal(t, "panic: boom", pe.Error())

	assert.Nil(t, (&result.PanicError{Value: "str"}).Unwrap())
}
