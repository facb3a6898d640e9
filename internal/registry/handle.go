package registry

// Handle is the registry's view of a live connection: opaque beyond the
// ability to push frames at it and close it. The transport package that
// implements it owns the actual socket; the registry only ever holds
// non-owning references.
type Handle interface {
	SendText(data []byte) error
	SendBinary(data []byte) error
	Close() error
}
