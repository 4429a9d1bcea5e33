package ad

import "github.com/google/uuid"

// Walk calls fn for each AD structure in buf, in order. A zero length byte
// ends the significant part of the data. Returned elements alias buf.
func Walk(buf []byte, fn func(Element) bool) error {
	for len(buf) > 0 {
		l := int(buf[0])
		if l == 0 {
			return nil
		}
		if len(buf) < 1+l {
			return ErrMalformed
		}
		data := buf[2 : 1+l]
		if !fn(Element{Type: Type(buf[1]), Length: len(data), Data: data}) {
			return nil
		}
		buf = buf[1+l:]
	}
	return nil
}

// Parse splits buf into its AD structures.
func Parse(buf []byte) ([]Element, error) {
	var elements []Element
	err := Walk(buf, func(e Element) bool {
		elements = append(elements, e)
		return true
	})
	if err != nil {
		return nil, err
	}
	return elements, nil
}

// Field returns the data of the first structure of type t, or nil if there
// is none or buf is malformed before it.
func Field(buf []byte, t Type) []byte {
	var data []byte
	Walk(buf, func(e Element) bool {
		if e.Type == t {
			data = e.Data
			return false
		}
		return true
	})
	return data
}

// LocalName prefers the complete name over the shortened one.
func LocalName(buf []byte) string {
	if b := Field(buf, TypeCompleteLocalName); b != nil {
		return string(b)
	}
	return string(Field(buf, TypeShortLocalName))
}

// ServiceUUIDs128 decodes a little-endian list of 128-bit UUIDs. A trailing
// partial UUID is ignored.
func ServiceUUIDs128(data []byte) []uuid.UUID {
	var uuids []uuid.UUID
	for ; len(data) >= 16; data = data[16:] {
		var u uuid.UUID
		for i := 0; i < 16; i++ {
			u[i] = data[15-i]
		}
		uuids = append(uuids, u)
	}
	return uuids
}
