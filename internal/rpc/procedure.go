// Package rpc exposes named procedures over HTTP with a uniform error mapping.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/launchpad-web/launchpad/internal/ability"
	"github.com/launchpad-web/launchpad/internal/guard"
	"github.com/launchpad-web/launchpad/internal/platform/httpx"
	"github.com/launchpad-web/launchpad/internal/reqctx"
)

// Kind separates read-only queries from mutations.
type Kind uint8

const (
	Query Kind = iota
	Mutation
)

func (k Kind) String() string {
	if k == Mutation {
		return "mutation"
	}
	return "query"
}

// Access is the identity tier a procedure requires.
type Access uint8

const (
	// Public procedures run for anonymous callers too.
	Public Access = iota
	// Protected procedures need an enabled identity and, when set, the Ability predicate.
	Protected
	// Admin procedures need an enabled admin identity.
	Admin
)

// Handler runs a procedure against raw JSON input.
type Handler func(ctx context.Context, rc *reqctx.Context, input json.RawMessage) (any, error)

// Procedure is a named operation exposed at /api/rpc/{Name}.
type Procedure struct {
	Name    string
	Kind    Kind
	Access  Access
	Ability func(*ability.Set) bool
	Handle  Handler
}

func (p Procedure) guards() []guard.Guard {
	var guards []guard.Guard
	switch p.Access {
	case Protected:
		guards = append(guards, guard.RequireIdentity(), guard.RequireEnabled())
	case Admin:
		guards = append(guards, guard.RequireIdentity(), guard.RequireEnabled(), guard.RequireAdmin())
	}
	if p.Ability != nil {
		guards = append(guards, guard.RequireCapability(p.Ability))
	}
	return guards
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Typed adapts fn to a Handler that decodes and validates its input.
// Empty or null input decodes to the zero value of In.
func Typed[In, Out any](fn func(ctx context.Context, rc *reqctx.Context, in In) (Out, error)) Handler {
	return func(ctx context.Context, rc *reqctx.Context, raw json.RawMessage) (any, error) {
		var in In
		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
			dec := json.NewDecoder(bytes.NewReader(trimmed))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&in); err != nil {
				return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
			}
		}
		if isStruct(in) {
			if err := validate.Struct(in); err != nil {
				return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
			}
		}
		return fn(ctx, rc, in)
	}
}

func isStruct(v any) bool {
	t := reflect.TypeOf(v)
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Pointer {
		if reflect.ValueOf(v).IsNil() {
			return false
		}
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}
