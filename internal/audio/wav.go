package audio

import "encoding/binary"

// EncodeWAV wraps the stream's PCM in a RIFF/WAVE container.
// Used for the probe sample, where a lossless payload keeps the
// verification transcription independent of MP3 encoding artifacts.
func EncodeWAV(s *Stream) []byte {
	const headerSize = 44
	dataSize := len(s.PCM)

	buf := make([]byte, headerSize+dataSize)
	le := binary.LittleEndian

	copy(buf[0:4], "RIFF")
	le.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	le.PutUint32(buf[16:20], 16) // PCM fmt chunk size
	le.PutUint16(buf[20:22], 1)  // PCM format tag
	le.PutUint16(buf[22:24], Channels)
	le.PutUint32(buf[24:28], SampleRate)
	le.PutUint32(buf[28:32], SampleRate*Channels*SampleWidth) // byte rate
	le.PutUint16(buf[32:34], Channels*SampleWidth)            // block align
	le.PutUint16(buf[34:36], SampleWidth*8)                   // bits per sample

	copy(buf[36:40], "data")
	le.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], s.PCM)

	return buf
}
