package utils

import (
	"reflect"
	"testing"
)

// Equal fails the test when got and want differ (deep comparison).
func Equal(t *testing.T, got, want interface{}) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

// NilError fails the test on an unexpected error.
func NilError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
