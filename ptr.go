// ptr.go provides a helper function for creating pointers to values.

package m2mcodec

func ptr[T any](in T) *T {
	return &in
}
