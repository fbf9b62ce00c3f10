package utils

// Value dereferences v, returning the zero value for nil.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}

// PtrIf returns a pointer to v when set is true. Optional request fields
// use it so that unset command line flags are omitted from the body.
func PtrIf[T any](v T, set bool) *T {
	if !set {
		return nil
	}
	return &v
}
