package ticksutil

import (
	"fmt"
	"reflect"
)

// AssertNotNil takes a pointer to a nil-able value (pointer, interface, map,
// etc) and panics with CheckError if the pointed-to value is nil.
func AssertNotNil(ptr interface{}) {
	elem := reflect.ValueOf(ptr).Elem()
	if elem.IsNil() {
		panic(CheckError{Message: fmt.Sprintf("%s is nil", elem.Type().String())})
	}
}
