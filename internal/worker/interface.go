package worker

import "io"

// Input is the host end of console input.
type Input interface {
	Feed(data []byte) error
}

// Output is the host end of console output.
type Output interface {
	Drain(w io.Writer) (int, error)
}

// Terminal is the application end of the console.
type Terminal interface {
	PutChar(b byte) error
	PutString(s []byte) error
	GetChar() byte
}
