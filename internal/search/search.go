// Package search composes keyword searches over books and members.
//
// A search names one field, or "all" to match any field. Any-field results
// are concatenated in field order (title, author, publisher, isbn for books;
// name, phone for members) and each record appears once, at its first match.
package search

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// FieldAll selects the any-field search.
const FieldAll = "all"

// MergeByKey concatenates lists in order and drops every element whose key
// was already seen.
func MergeByKey[T any, K comparable](key func(T) K, lists ...[]T) []T {
	seen := make(map[K]struct{})
	var out []T
	for _, list := range lists {
		for _, v := range list {
			k := key(v)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// Books searches the catalog. An empty keyword lists every book.
func Books(ctx context.Context, q sqlx.QueryerContext, field, keyword string) ([]model.Book, error) {
	if strings.TrimSpace(keyword) == "" {
		return store.ListBooks(ctx, q)
	}
	if known(model.BookFields, field) {
		return store.SearchBooksByField(ctx, q, field, keyword)
	}
	return anyField(ctx, q, model.BookFields, keyword, store.SearchBooksByField,
		func(b model.Book) int64 { return b.ID })
}

// Members searches the member directory. An empty keyword lists every member.
func Members(ctx context.Context, q sqlx.QueryerContext, field, keyword string) ([]model.Member, error) {
	if strings.TrimSpace(keyword) == "" {
		return store.ListMembers(ctx, q)
	}
	if known(model.MemberFields, field) {
		return store.SearchMembersByField(ctx, q, field, keyword)
	}
	return anyField(ctx, q, model.MemberFields, keyword, store.SearchMembersByField,
		func(m model.Member) int64 { return m.ID })
}

func known(fields []string, field string) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}

type fieldSearch[T any] func(ctx context.Context, q sqlx.QueryerContext, field, keyword string) ([]T, error)

// anyField runs one query per field concurrently and merges the results in
// field order.
func anyField[T any](ctx context.Context, q sqlx.QueryerContext, fields []string, keyword string, find fieldSearch[T], key func(T) int64) ([]T, error) {
	results := make([][]T, len(fields))

	g, ctx := errgroup.WithContext(ctx)
	for i, field := range fields {
		g.Go(func() error {
			found, err := find(ctx, q, field, keyword)
			if err != nil {
				return err
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return MergeByKey(key, results...), nil
}
