package ad

// Maximum AD payload sizes. Legacy advertising and scan response PDUs carry
// 31 bytes; extended advertising is capped by the one-byte data length field.
const (
	MaxLegacyLength   = 31
	MaxExtendedLength = 253
)

// Element is one AD structure. Length is supplied by the caller and is the
// number of bytes in Data, not counting the type byte. Data is borrowed and
// never modified.
type Element struct {
	Type   Type
	Length int
	Data   []byte
}

// Target selects which controller buffer a payload is destined for.
type Target uint8

const (
	TargetAdvertising Target = iota
	TargetScanResponse
	TargetPeriodic
)

func (t Target) String() string {
	switch t {
	case TargetAdvertising:
		return "advertising"
	case TargetScanResponse:
		return "scan-response"
	case TargetPeriodic:
		return "periodic"
	}
	return "unknown"
}

// Payload is a single advertising data request. It is built per
// (re)configuration and consumed by one encode call.
type Payload struct {
	Target   Target
	Extended bool
	Elements []Element
}

// Limit returns the size ceiling for legacy or extended advertising.
func Limit(extended bool) int {
	if extended {
		return MaxExtendedLength
	}
	return MaxLegacyLength
}

// Size returns the encoded size of elements: one length byte and one type
// byte per element plus its declared data length.
func Size(elements []Element) int {
	n := 0
	for _, e := range elements {
		n += 2 + e.Length
	}
	return n
}

func validate(elements []Element, extended bool) (int, error) {
	size := Size(elements)
	if limit := Limit(extended); size > limit {
		return 0, &PayloadTooLargeError{Size: size, Limit: limit}
	}
	for i, e := range elements {
		if e.Data == nil {
			return 0, &NullElementError{Index: i}
		}
	}
	for i, e := range elements {
		if e.Length < 0 || e.Length != len(e.Data) {
			return 0, &LengthMismatchError{Index: i, Length: e.Length, Actual: len(e.Data)}
		}
	}
	return size, nil
}

func write(dst []byte, elements []Element) int {
	n := 0
	for _, e := range elements {
		dst[n] = byte(e.Length + 1)
		dst[n+1] = byte(e.Type)
		n += 2
		n += copy(dst[n:], e.Data[:e.Length])
	}
	return n
}

// Encode serialises elements into a new buffer sized to the encoded length.
// Nothing is allocated when validation fails.
func Encode(elements []Element, extended bool) ([]byte, error) {
	size, err := validate(elements, extended)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	write(buf, elements)
	return buf, nil
}

func (p *Payload) Encode() ([]byte, error) {
	return Encode(p.Elements, p.Extended)
}

// MarshalTo writes the encoded payload into dst and returns the number of
// bytes written. dst is left untouched on error.
func (p *Payload) MarshalTo(dst []byte) (int, error) {
	size, err := validate(p.Elements, p.Extended)
	if err != nil {
		return 0, err
	}
	if len(dst) < size {
		return 0, &PayloadTooLargeError{Size: size, Limit: len(dst)}
	}
	return write(dst, p.Elements), nil
}

// Size returns the encoded size of the payload without validating it.
func (p *Payload) Size() int {
	return Size(p.Elements)
}
