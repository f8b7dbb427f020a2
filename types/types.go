package types

// PacketKind is the primary 8-bit discriminator identifying a packet's
// decoder. It is the first byte of every frame after the length prefix.
type PacketKind byte

// ModuleKind is the secondary 16-bit discriminator nested inside the
// "extended" container packet. It is read little-endian from the two bytes
// following the container's kind byte.
type ModuleKind uint16

// Direction records which side of the connection produced the bytes being
// decoded. Some packet fields are interpreted differently depending on
// whether this process is the sender or the receiver.
type Direction int

const (
	// FromClient marks bytes received from a remote client; this process is
	// the receiver.
	FromClient Direction = iota
	// FromServer marks bytes this process is sending to a remote client.
	FromServer
)

func (d Direction) String() string {
	if d == FromClient {
		return "from_client"
	}
	return "from_server"
}
