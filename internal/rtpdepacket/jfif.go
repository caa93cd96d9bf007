// If you are AI: This file writes the JFIF marker segments buildJFIF assembles around RTP/JPEG scan data.

package rtpdepacket

import "bytes"

// writeAPP0 writes a JFIF APP0 marker segment.
func writeAPP0(buf *bytes.Buffer) {
	buf.Write([]byte{0xFF, 0xE0, 0x00, 0x10})
	buf.WriteString("JFIF\x00")
	buf.Write([]byte{0x01, 0x01, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00})
}

// writeDQT writes a quantization-table marker segment.
func writeDQT(buf *bytes.Buffer, id int, table []byte) {
	buf.Write([]byte{0xFF, 0xDB, 0x00, 0x43, byte(id)})
	buf.Write(table)
}

// writeSOF0 writes a baseline start-of-frame for 4:2:0 sampled YCbCr
// (the RFC 2435 type 0/1 component layout).
func writeSOF0(buf *bytes.Buffer, width, height int, typ byte) {
	hSamp, vSamp := byte(0x22), byte(0x11)
	if typ == 1 {
		hSamp = 0x21
	}
	buf.Write([]byte{0xFF, 0xC0, 0x00, 0x11, 0x08})
	buf.Write([]byte{byte(height >> 8), byte(height), byte(width >> 8), byte(width)})
	buf.Write([]byte{0x03})
	buf.Write([]byte{0x01, hSamp, 0x00})
	buf.Write([]byte{0x02, 0x11, 0x01})
	buf.Write([]byte{0x03, vSamp, 0x01})
}

// writeDHT writes a Huffman-table marker segment.
func writeDHT(buf *bytes.Buffer, t huffmanTable) {
	length := 2 + 1 + 16 + len(t.values)
	buf.Write([]byte{0xFF, 0xC4, byte(length >> 8), byte(length)})
	buf.WriteByte(t.class<<4 | t.id)
	buf.Write(t.counts[:])
	buf.Write(t.values)
}

// writeSOS writes the start-of-scan marker segment.
func writeSOS(buf *bytes.Buffer) {
	buf.Write([]byte{0xFF, 0xDA, 0x00, 0x0C, 0x03})
	buf.Write([]byte{0x01, 0x00})
	buf.Write([]byte{0x02, 0x11})
	buf.Write([]byte{0x03, 0x11})
	buf.Write([]byte{0x00, 0x3F, 0x00})
}

type huffmanTable struct {
	class  byte // 0 = DC, 1 = AC
	id     byte
	counts [16]byte
	values []byte
}

// standardHuffmanTables are the four default tables from JPEG Annex K,
// the ones RFC 2435 assumes a decoder already has since they are never
// sent on the wire.
var standardHuffmanTables = []huffmanTable{
	{class: 0, id: 0, counts: [16]byte{0, 1, 5, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0}, values: []byte{
		0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B,
	}},
	{class: 1, id: 0, counts: [16]byte{0, 2, 1, 3, 3, 2, 4, 3, 5, 5, 4, 4, 0, 0, 1, 0x7D}, values: []byte{
		0x01, 0x02, 0x03, 0x00, 0x04, 0x11, 0x05, 0x12, 0x21, 0x31, 0x41, 0x06,
		0x13, 0x51, 0x61, 0x07, 0x22, 0x71, 0x14, 0x32, 0x81, 0x91, 0xA1, 0x08,
		0x23, 0x42, 0xB1, 0xC1, 0x15, 0x52, 0xD1, 0xF0, 0x24, 0x33, 0x62, 0x72,
		0x82, 0x09, 0x0A, 0x16, 0x17, 0x18, 0x19, 0x1A, 0x25, 0x26, 0x27, 0x28,
		0x29, 0x2A, 0x34, 0x35, 0x36, 0x37, 0x38, 0x39, 0x3A, 0x43, 0x44, 0x45,
		0x46, 0x47, 0x48, 0x49, 0x4A, 0x53, 0x54, 0x55, 0x56, 0x57, 0x58, 0x59,
		0x5A, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68, 0x69, 0x6A, 0x73, 0x74, 0x75,
		0x76, 0x77, 0x78, 0x79, 0x7A, 0x83, 0x84, 0x85, 0x86, 0x87, 0x88, 0x89,
		0x8A, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97, 0x98, 0x99, 0x9A, 0xA2, 0xA3,
		0xA4, 0xA5, 0xA6, 0xA7, 0xA8, 0xA9, 0xAA, 0xB2, 0xB3, 0xB4, 0xB5, 0xB6,
		0xB7, 0xB8, 0xB9, 0xBA, 0xC2, 0xC3, 0xC4, 0xC5, 0xC6, 0xC7, 0xC8, 0xC9,
		0xCA, 0xD2, 0xD3, 0xD4, 0xD5, 0xD6, 0xD7, 0xD8, 0xD9, 0xDA, 0xE1, 0xE2,
		0xE3, 0xE4, 0xE5, 0xE6, 0xE7, 0xE8, 0xE9, 0xEA, 0xF1, 0xF2, 0xF3, 0xF4,
		0xF5, 0xF6, 0xF7, 0xF8, 0xF9, 0xFA,
	}},
	{class: 0, id: 1, counts: [16]byte{0, 3, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0}, values: []byte{
		0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B,
	}},
	{class: 1, id: 1, counts: [16]byte{0, 2, 1, 2, 4, 4, 3, 4, 7, 5, 4, 4, 0, 1, 2, 0x77}, values: []byte{
		0x00, 0x01, 0x02, 0x03, 0x11, 0x04, 0x05, 0x21, 0x31, 0x06, 0x12, 0x41,
		0x51, 0x07, 0x61, 0x71, 0x13, 0x22, 0x32, 0x81, 0x08, 0x14, 0x42, 0x91,
		0xA1, 0xB1, 0xC1, 0x09, 0x23, 0x33, 0x52, 0xF0, 0x15, 0x62, 0x72, 0xD1,
		0x0A, 0x16, 0x24, 0x34, 0xE1, 0x25, 0xF1, 0x17, 0x18, 0x19, 0x1A, 0x26,
		0x27, 0x28, 0x29, 0x2A, 0x35, 0x36, 0x37, 0x38, 0x39, 0x3A, 0x43, 0x44,
		0x45, 0x46, 0x47, 0x48, 0x49, 0x4A, 0x53, 0x54, 0x55, 0x56, 0x57, 0x58,
		0x59, 0x5A, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68, 0x69, 0x6A, 0x73, 0x74,
		0x75, 0x76, 0x77, 0x78, 0x79, 0x7A, 0x82, 0x83, 0x84, 0x85, 0x86, 0x87,
		0x88, 0x89, 0x8A, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97, 0x98, 0x99, 0x9A,
		0xA2, 0xA3, 0xA4, 0xA5, 0xA6, 0xA7, 0xA8, 0xA9, 0xAA, 0xB2, 0xB3, 0xB4,
		0xB5, 0xB6, 0xB7, 0xB8, 0xB9, 0xBA, 0xC2, 0xC3, 0xC4, 0xC5, 0xC6, 0xC7,
		0xC8, 0xC9, 0xCA, 0xD2, 0xD3, 0xD4, 0xD5, 0xD6, 0xD7, 0xD8, 0xD9, 0xDA,
		0xE2, 0xE3, 0xE4, 0xE5, 0xE6, 0xE7, 0xE8, 0xE9, 0xEA, 0xF2, 0xF3, 0xF4,
		0xF5, 0xF6, 0xF7, 0xF8, 0xF9, 0xFA,
	}},
}
