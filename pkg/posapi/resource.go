package posapi

import (
	"context"
	"net/http"

	"go-pos/pkg/model"
)

// Resource is the read and update surface backend entities share: GET on the base path,
// GET/PUT on base/{id}.
type Resource[T any] struct {
	c    *Client
	base string
}

func NewResource[T any](c *Client, base string) Resource[T] {
	return Resource[T]{c: c, base: base}
}

func (r Resource[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	err := r.c.do(ctx, http.MethodGet, r.base, nil, &out)
	return out, err
}

func (r Resource[T]) Get(ctx context.Context, id model.FlexString) (T, error) {
	var out T
	err := r.c.do(ctx, http.MethodGet, r.base+"/"+escape(id), nil, &out)
	return out, err
}

func (r Resource[T]) Update(ctx context.Context, id model.FlexString, body any) (T, error) {
	var out T
	err := r.c.do(ctx, http.MethodPut, r.base+"/"+escape(id), body, &out)
	return out, err
}
