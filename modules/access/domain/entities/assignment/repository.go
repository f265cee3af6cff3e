package assignment

import "context"

type ReferenceRepository interface {
	Load(ctx context.Context) (*ReferenceSet, error)
}

type Repository interface {
	Insert(ctx context.Context, p Pair) error
	ListPairs(ctx context.Context) ([]Pair, error)
	Delete(ctx context.Context, pairs []Pair) (int64, error)
	List(ctx context.Context) ([]Grant, error)
}
