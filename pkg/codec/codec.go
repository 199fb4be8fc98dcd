// Package codec provides the pluggable content codecs used for request and
// response bodies. One codec is selected per process from configuration:
//
//	c, err := codec.ByName(config.Codec())
//	c = codec.Logged(c, logger.L)
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownCodec is returned by ByName for unsupported names.
var ErrUnknownCodec = errors.New("codec: unknown codec")

// Codec encodes and decodes bodies of a single media type.
type Codec interface {
	Name() string
	ContentType() string
	Encode(w io.Writer, v any) error
	Decode(r io.Reader, v any) error
}

// ByName returns the codec registered under name ("json" or "yaml").
func ByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSON(), nil
	case "yaml", "yml":
		return YAML(), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownCodec, name)
	}
}

// ─── JSON ─────────────────────────────────────────────────────────────────────

type jsonCodec struct{}

// JSON returns the encoding/json codec.
func JSON() Codec { return jsonCodec{} }

func (jsonCodec) Name() string        { return "json" }
func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Encode(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

func (jsonCodec) Decode(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("codec: decode json: %w", err)
	}
	return nil
}

// ─── YAML ─────────────────────────────────────────────────────────────────────

type yamlCodec struct{}

// YAML returns the gopkg.in/yaml.v3 codec.
func YAML() Codec { return yamlCodec{} }

func (yamlCodec) Name() string        { return "yaml" }
func (yamlCodec) ContentType() string { return "application/yaml" }

func (yamlCodec) Encode(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (yamlCodec) Decode(r io.Reader, v any) error {
	if err := yaml.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("codec: decode yaml: %w", err)
	}
	return nil
}
