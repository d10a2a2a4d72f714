package record

import (
	"context"

	recordsvc "github.com/w-h-a/cervello/internal/service/record"
	"github.com/w-h-a/cervello/storer"
	toolhandler "github.com/w-h-a/cervello/tool_handler"
)

// Records is the part of the record service the tools call.
type Records interface {
	Search(ctx context.Context, text string, limit int) ([]storer.Record, error)
	Store(ctx context.Context, text string, metadata map[string]any, opts ...recordsvc.StoreOption) (string, error)
	Replace(ctx context.Context, searchText string, newText string, metadata map[string]any) (recordsvc.Outcome, error)
	Delete(ctx context.Context, text string, opts ...recordsvc.DeleteOption) (recordsvc.Outcome, error)
}

type recordsKey struct{}

func WithRecords(records Records) toolhandler.Option {
	return func(o *toolhandler.Options) {
		o.Context = context.WithValue(o.Context, recordsKey{}, records)
	}
}

func RecordsFrom(ctx context.Context) (Records, bool) {
	records, ok := ctx.Value(recordsKey{}).(Records)
	return records, ok
}

type searchLimitKey struct{}

func WithDefaultSearchLimit(limit int) toolhandler.Option {
	return func(o *toolhandler.Options) {
		o.Context = context.WithValue(o.Context, searchLimitKey{}, limit)
	}
}

func DefaultSearchLimitFrom(ctx context.Context) (int, bool) {
	limit, ok := ctx.Value(searchLimitKey{}).(int)
	return limit, ok
}
