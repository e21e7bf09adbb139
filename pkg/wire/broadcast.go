package wire

import (
	"encoding/binary"
	"fmt"
	"net"
)

// DatagramSize is the maximum payload carried by a single UDP
// datagram in the chunked broadcast scheme (spec §4.2).
const DatagramSize = 8192

// lengthAnnounceSize is the fixed size of the announce datagram: an
// 8-byte big-endian total length, comfortably inside the "up to 1024
// bytes" budget spec §4.2 allows for it.
const lengthAnnounceSize = 8

// BroadcastPayload sends payload to addr as a length-announce datagram
// followed by payload split into DatagramSize chunks. There is no
// retransmission: a lost datagram fails the round for whoever missed
// it (spec §4.2, §9 "UDP broadcast of sensitive directories").
func BroadcastPayload(conn *net.UDPConn, addr *net.UDPAddr, payload []byte) error {
	var announce [lengthAnnounceSize]byte
	binary.BigEndian.PutUint64(announce[:], uint64(len(payload)))
	if _, err := conn.WriteToUDP(announce[:], addr); err != nil {
		return fmt.Errorf("%w: announce: %v", ErrTransport, err)
	}
	for off := 0; off < len(payload); off += DatagramSize {
		end := off + DatagramSize
		if end > len(payload) {
			end = len(payload)
		}
		if _, err := conn.WriteToUDP(payload[off:end], addr); err != nil {
			return fmt.Errorf("%w: chunk at offset %d: %v", ErrTransport, off, err)
		}
	}
	return nil
}

// ReceiveBroadcast reads one length-announce datagram followed by
// enough chunk datagrams to accumulate the announced length.
func ReceiveBroadcast(conn *net.UDPConn) ([]byte, error) {
	announce := make([]byte, lengthAnnounceSize)
	n, err := conn.Read(announce)
	if err != nil {
		return nil, fmt.Errorf("%w: reading announce: %v", ErrTransport, err)
	}
	if n != lengthAnnounceSize {
		return nil, fmt.Errorf("%w: short announce datagram", ErrTransport)
	}
	total := binary.BigEndian.Uint64(announce)

	payload := make([]byte, 0, total)
	buf := make([]byte, DatagramSize)
	for uint64(len(payload)) < total {
		n, err := conn.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("%w: reading chunk: %v", ErrTransport, err)
		}
		payload = append(payload, buf[:n]...)
	}
	return payload[:total], nil
}
