// Package response writes a result.Result to the client through a codec.
package response

import (
	"net/http"

	"github.com/shashiranjanraj/ctxflow/pkg/codec"
	"github.com/shashiranjanraj/ctxflow/pkg/correlation"
	"github.com/shashiranjanraj/ctxflow/pkg/result"
)

// Envelope is the body shape of every response.
type Envelope struct {
	Status        int    `json:"status" yaml:"status"`
	Message       string `json:"message,omitempty" yaml:"message,omitempty"`
	Data          any    `json:"data,omitempty" yaml:"data,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty" yaml:"correlation_id,omitempty"`
}

// Build converts res into its envelope. Fault details never leave the
// process: faults carry only the status text.
func Build(res result.Result, correlationID string) Envelope {
	status := res.StatusCode()
	env := Envelope{Status: status, CorrelationID: correlationID}
	if res.Faulted() {
		env.Message = http.StatusText(status)
		return env
	}
	if msg, ok := res.Body.(string); ok && status >= http.StatusBadRequest {
		env.Message = msg
		return env
	}
	env.Data = res.Body
	return env
}

// Write encodes res with c. The status line is written before the body, so
// an encode error can only be returned, not turned into another status.
func Write(w http.ResponseWriter, c codec.Codec, res result.Result, correlationID string) error {
	if c == nil {
		c = codec.JSON()
	}
	status := res.StatusCode()
	w.Header().Set("Content-Type", c.ContentType())
	if correlationID != "" && w.Header().Get(correlation.Header) == "" {
		w.Header().Set(correlation.Header, correlationID)
	}
	w.WriteHeader(status)
	if status == http.StatusNoContent {
		return nil
	}
	return c.Encode(w, Build(res, correlationID))
}
