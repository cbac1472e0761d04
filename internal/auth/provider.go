// Package auth は現在のユーザーIDの解決とトークン検証を扱います
package auth

import "context"

// CurrentUserProvider は現在のユーザーIDを引き出すためのインターフェースです
type CurrentUserProvider interface {
	CurrentUserID(ctx context.Context) (string, bool)
	IsAuthenticated(ctx context.Context) bool
}

// TokenVerifier はベアラートークンを検証してユーザーIDを返します
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

type contextKey struct{}

// WithUserID は認証済みユーザーIDをコンテキストに載せます
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// ContextProvider はリクエストのコンテキストからユーザーIDを取り出します
type ContextProvider struct{}

func (ContextProvider) CurrentUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(contextKey{}).(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}

func (p ContextProvider) IsAuthenticated(ctx context.Context) bool {
	_, ok := p.CurrentUserID(ctx)
	return ok
}

// StaticProvider は常に同じユーザーを返します。バッチとテスト用です
type StaticProvider struct {
	UserID string
}

func (p StaticProvider) CurrentUserID(context.Context) (string, bool) {
	return p.UserID, p.UserID != ""
}

func (p StaticProvider) IsAuthenticated(ctx context.Context) bool {
	_, ok := p.CurrentUserID(ctx)
	return ok
}
