package main

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		addrFlag, demoParam = "", ""
	})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestRouteList(t *testing.T) {
	out := execute(t, "route:list")

	assert.Contains(t, out, "METHOD")
	assert.Contains(t, out, "/hello/{param}")
	assert.Contains(t, out, "hello")
}

func TestDemoPrintsFaultResponse(t *testing.T) {
	out := execute(t, "demo", "--addr", "127.0.0.1:0", "--param", "test")

	status, body, ok := strings.Cut(strings.TrimSpace(out), " ")
	require.True(t, ok, out)
	code, err := strconv.Atoi(status)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Contains(t, body, `"correlation_id"`)
	assert.Contains(t, body, `"status":500`)
}
