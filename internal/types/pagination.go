package types

type PaginationResponse struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ListResponse is the envelope of every list endpoint
type ListResponse[T any] struct {
	Items      []T                `json:"items"`
	Pagination PaginationResponse `json:"pagination"`
}

func NewListResponse[T any](items []T, total, limit, offset int) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{
		Items: items,
		Pagination: PaginationResponse{
			Total:  total,
			Limit:  limit,
			Offset: offset,
		},
	}
}

// NewPaginatedListResponse describes one page of a filtered listing
func NewPaginatedListResponse[T any](items []T, total int, filter BaseFilter) ListResponse[T] {
	return NewListResponse(items, total, filter.GetLimit(), filter.GetOffset())
}

// NewFullListResponse wraps a listing that is always returned whole
func NewFullListResponse[T any](items []T) ListResponse[T] {
	return NewListResponse(items, len(items), len(items), 0)
}
