package outgoing

// padBlockSize is the server-compatible padding quantum. Changing it breaks
// interop with every deployed client.
const padBlockSize = 160

// padPlaintext returns m followed by a 0x80 terminator and zeros. The buffer
// is one byte short of the next 160-byte boundary past the terminator, so
// len(padded) % 160 == 159 and the terminator always fits.
func padPlaintext(m []byte) []byte {
	paddedLen := ((len(m)+1)/padBlockSize+1)*padBlockSize - 1
	padded := make([]byte, paddedLen)
	copy(padded, m)
	padded[len(m)] = 0x80
	return padded
}
