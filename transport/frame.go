package transport

import "encoding/binary"

// EncodeFrame serializes PCM samples as little-endian int16 wire bytes.
func EncodeFrame(frame []int16) []byte {
	data := make([]byte, len(frame)*2)
	for i, sample := range frame {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(sample))
	}
	return data
}

// DecodeFrame parses a datagram into frameLen PCM samples. Returns
// ErrBadDatagram unless the payload is exactly frameLen little-endian
// int16 samples.
func DecodeFrame(data []byte, frameLen int) ([]int16, error) {
	if len(data) != frameLen*2 {
		return nil, ErrBadDatagram
	}
	frame := make([]int16, frameLen)
	for i := range frame {
		frame[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return frame, nil
}
