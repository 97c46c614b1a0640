package catalyst

import "context"

// Paginate drives an offset-paginated GET to exhaustion and concatenates
// the pages. fetch receives a 1-based offset and returns one page of at
// most PageSize records; a short or empty page terminates the walk.
// Callers never see page boundaries.
func Paginate[T any](ctx context.Context, fetch func(ctx context.Context, offset int) ([]T, error)) ([]T, error) {
	var all []T
	for offset := 1; ; offset += PageSize {
		page, err := fetch(ctx, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < PageSize {
			return all, nil
		}
	}
}
