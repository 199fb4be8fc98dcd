package codec

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/shashiranjanraj/ctxflow/pkg/metrics"
)

type logged struct {
	Codec
	log *slog.Logger
}

// Logged wraps c so every encode and decode is logged before it is
// delegated. The wire format is left untouched.
func Logged(c Codec, log *slog.Logger) Codec {
	if log == nil {
		log = slog.Default()
	}
	return &logged{Codec: c, log: log}
}

func (l *logged) Encode(w io.Writer, v any) error {
	l.log.Debug("codec", "event", "encode", "codec", l.Name(), "type", typeName(v))
	metrics.CodecOperations.WithLabelValues(l.Name(), "encode").Inc()
	return l.Codec.Encode(w, v)
}

func (l *logged) Decode(r io.Reader, v any) error {
	l.log.Debug("codec", "event", "decode", "codec", l.Name(), "type", typeName(v))
	metrics.CodecOperations.WithLabelValues(l.Name(), "decode").Inc()
	return l.Codec.Decode(r, v)
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
