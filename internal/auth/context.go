package auth

import "context"

type stateKey struct{}

// NewContext はStateを格納したコンテキストを返す。
func NewContext(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, stateKey{}, s)
}

// FromContext はコンテキストに格納されたStateを返す。
func FromContext(ctx context.Context) (*State, bool) {
	s, ok := ctx.Value(stateKey{}).(*State)
	return s, ok && s != nil
}
