package render

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// jfifUnitsPerInch is JFIF density unit "pixels per inch".
const jfifUnitsPerInch = 1

// withJFIFDensity inserts JFIF APP0 segment carrying print density right
// after SOI. image/jpeg never writes APP0, so without it viewers assume 72
// dpi and print score pages huge. Data which already has APP0 is returned
// as is.
func withJFIFDensity(data []byte, dpi int) ([]byte, error) {
	if len(data) < 4 {
		return nil, errors.New("jpeg too small")
	}
	if data[0] != 0xFF || data[1] != 0xD8 {
		return nil, errors.New("not a jpeg")
	}
	if data[2] == 0xFF && data[3] == 0xE0 {
		return data, nil
	}

	buf := bytes.NewBuffer(make([]byte, 0, len(data)+18))
	buf.Write(data[:2])
	buf.Write([]byte{0xFF, 0xE0})
	_ = binary.Write(buf, binary.BigEndian, uint16(16))
	buf.Write([]byte{'J', 'F', 'I', 'F', 0x00, 0x01, 0x02})
	buf.WriteByte(jfifUnitsPerInch)
	_ = binary.Write(buf, binary.BigEndian, uint16(dpi))
	_ = binary.Write(buf, binary.BigEndian, uint16(dpi))
	buf.Write([]byte{0, 0}) // no thumbnail
	buf.Write(data[2:])
	return buf.Bytes(), nil
}
