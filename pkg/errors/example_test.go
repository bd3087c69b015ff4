package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/txprofile/pkg/errors"
)

// Example demonstrates basic error creation with details.
func Example() {
	err := errors.New(errors.ErrorTypeParse, "date does not match layout").
		WithDetail("row", 42).
		WithDetail("column", "date")

	fmt.Println(err.Error())

	// Output:
	// parse: date does not match layout (column=date, row=42)
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeFile, "failed to read CSV file")

	if errors.IsType(err, errors.ErrorTypeFile) {
		fmt.Println("This is a file error")
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		fmt.Println("Cause was unexpected EOF")
	}

	// Output:
	// This is a file error
	// Cause was unexpected EOF
}

// ExampleGetType demonstrates category lookup on foreign errors.
func ExampleGetType() {
	fmt.Println(errors.GetType(errors.New(errors.ErrorTypeRender, "no rows")))
	fmt.Println(errors.GetType(io.EOF))

	// Output:
	// render
	// internal
}
