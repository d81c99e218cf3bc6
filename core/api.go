package core

import (
	"context"
)

// Request interface requires validation before the handler runs.
type Request interface {
	Validate() error
}

type Response any

// HandlerInterface, sunucu endpoint'lerinin uygulayacağı jenerik arayüzdür.
type HandlerInterface[R Request, Res Response] interface {
	Handle(ctx context.Context, req R) (Res, error)
}

// Middleware, handler'ı sarmalayan fonksiyon tipidir.
type Middleware func(next HandlerFunc) HandlerFunc

// HandlerFunc, tip silinmiş (Type-Erased) handler fonksiyonu.
type HandlerFunc func(ctx context.Context, req any) (any, error)

// Server, durum sorguları ve operasyonel uç noktalar için ince HTTP yüzeyidir.
// Çekirdek, sunucu olmadan da aynı şekilde çalışır.
type Server interface {
	Run() error
	Shutdown(ctx context.Context) error
	Use(middleware ...Middleware)
	Register(method, path string, handler HandlerFunc, reqFactory func() any)
}

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

type BaseResponse[T any] struct {
	Success bool      `json:"success"`
	Data    T         `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// RegisterEndpoint, tip güvenli bir endpoint kaydetmek için kullanılan jenerik
// bir yardımcı fonksiyondur. R bir değer tipi olmalıdır; sunucu istek gövdesini
// new(R) üzerine parse eder ve handler'a değer olarak iletir.
func RegisterEndpoint[R Request, Res Response](server Server, method, path string, handler HandlerInterface[R, Res]) {
	adapter := func(ctx context.Context, req any) (any, error) {
		return handler.Handle(ctx, *req.(*R))
	}

	server.Register(method, path, adapter, func() any { return new(R) })
}
