package protocol

// Command is one outbound protocol operation. Serialize returns the exact
// bytes to hand to a single device write.
type Command interface {
	Serialize() []byte
}

// ResponseCommand is a Command the printer answers with a fixed-size frame.
// The caller sends the command, then reads ReplySize bytes from the same
// link and passes them to Decode, with nothing in between.
type ResponseCommand[R any] interface {
	Command
	ReplySize() int
	Decode(frame []byte) (R, error)
}
