package types

import (
	"reflect"
)

// ObjectID is a unique identifier for an object (derived from its pointer
// value, so it is stable for the lifetime of the object).
type ObjectID uint64

type GetObjectIDer interface {
	GetObjectID() ObjectID
}

func GetObjectID[P interface{ *T }, T any](obj P) ObjectID {
	if obj == nil {
		return ObjectID(0)
	}
	ptr := uintptr(reflect.ValueOf(obj).UnsafePointer())
	if uintptr(uint64(ptr)) != ptr {
		panic("pointer value does not fit into uint64")
	}
	return ObjectID(uint64(ptr))
}
