package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// GreeterKey is the container key of the request's Greeter.
const GreeterKey = "greeter"

// ErrEmptyName is returned for a blank name.
var ErrEmptyName = errors.New("greeter: empty name")

// Greeter is the business capability the hello action calls.
type Greeter interface {
	Greet(ctx context.Context, name string) (string, error)
}

type greeter struct{}

// NewGreeter returns the plain implementation.
func NewGreeter() Greeter {
	return greeter{}
}

func (greeter) Greet(_ context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrEmptyName
	}
	return fmt.Sprintf("Hello, %s!", name), nil
}
