package dgram

import "github.com/tmineno/pipeit-sub000/internal/wire"

// SendChunked sends n samples of hdr.DType as one or more PPKT packets,
// splitting the payload across multiple packets when it would exceed mtu.
// hdr.Sequence and hdr.IterationIndex are advanced per chunk; on return
// hdr.Sequence is one past the last chunk sent, while hdr.IterationIndex,
// SampleCount and PayloadBytes keep the last chunk's values.
// Mirrors pipit::net::ppkt_send_chunked.
func SendChunked(sender *Sender, hdr *wire.PpktHeader, data []byte, n uint32, mtu int) int {
	dsz := hdr.DType.Size()
	if dsz == 0 {
		return 0
	}
	maxPayload := mtu - wire.PpktHeaderLen
	maxSamples := uint32(maxPayload / dsz)
	if maxSamples == 0 {
		return 0
	}

	baseIter := hdr.IterationIndex
	packetsSent := 0
	var offset uint32

	for offset < n {
		chunk := n - offset
		if chunk > maxSamples {
			chunk = maxSamples
		}
		hdr.SampleCount = chunk
		hdr.PayloadBytes = chunk * uint32(dsz)
		hdr.IterationIndex = baseIter + uint64(offset)

		headerBytes := hdr.Marshal()
		pkt := make([]byte, wire.PpktHeaderLen+int(hdr.PayloadBytes))
		copy(pkt, headerBytes[:])
		copy(pkt[wire.PpktHeaderLen:], data[int(offset)*dsz:int(offset)*dsz+int(hdr.PayloadBytes)])

		if sender.Send(pkt) {
			packetsSent++
		}

		hdr.Sequence++
		offset += chunk
	}

	return packetsSent
}
