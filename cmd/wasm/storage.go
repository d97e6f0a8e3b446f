//go:build js && wasm

package main

import (
	"context"
	"fmt"
	"syscall/js"

	"github.com/navmaint/drawboard/internal/store"
)

// localStorage is a store.Store over window.localStorage.
type localStorage struct {
	ls js.Value
}

func newLocalStorage() *localStorage {
	return &localStorage{ls: js.Global().Get("localStorage")}
}

func (s *localStorage) Load(_ context.Context, key string) (data []byte, err error) {
	if s.ls.IsUndefined() || s.ls.IsNull() {
		return nil, store.ErrNotFound
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("localStorage getItem: %v", r)
		}
	}()

	v := s.ls.Call("getItem", key)
	if v.IsNull() || v.IsUndefined() {
		return nil, store.ErrNotFound
	}
	return []byte(v.String()), nil
}

func (s *localStorage) Save(_ context.Context, key string, data []byte) (err error) {
	if s.ls.IsUndefined() || s.ls.IsNull() {
		return fmt.Errorf("localStorage unavailable")
	}
	// setItem throws on quota errors
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("localStorage setItem: %v", r)
		}
	}()

	s.ls.Call("setItem", key, string(data))
	return nil
}

func (s *localStorage) Close() error { return nil }
