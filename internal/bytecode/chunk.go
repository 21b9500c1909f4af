package bytecode

type Chunk struct {
	Code      []byte
	Constants []interface{}
}

func NewChunk() *Chunk {
	return &Chunk{
		Code:      []byte{},
		Constants: []interface{}{},
	}
}

func (c *Chunk) WriteOp(op OpCode) {
	c.Code = append(c.Code, byte(op))
}

func (c *Chunk) WriteByte(b byte) {
	c.Code = append(c.Code, b)
}

// WriteShort appends a 16-bit big-endian operand, used for jump distances.
func (c *Chunk) WriteShort(v int) {
	c.Code = append(c.Code, byte((v>>8)&0xff), byte(v&0xff))
}

// PatchShort overwrites a previously written 16-bit operand at offset.
func (c *Chunk) PatchShort(offset, v int) {
	c.Code[offset] = byte((v >> 8) & 0xff)
	c.Code[offset+1] = byte(v & 0xff)
}

func (c *Chunk) AddConstant(val interface{}) int {
	c.Constants = append(c.Constants, val)
	return len(c.Constants) - 1
}
