package rv64

// Immediate extraction, the inverse of the imm* field helpers

func DecodeIImm(word uint32) int32 {
	return int32(word) >> 20
}

func DecodeSImm(word uint32) int32 {
	return int32(word&0xFE000000)>>20 | int32(word>>7&0x1F)
}

func DecodeBImm(word uint32) int32 {
	imm := (word>>31&1)<<12 | (word>>7&1)<<11 | (word>>25&0x3F)<<5 | (word>>8&0xF)<<1
	return int32(imm<<19) >> 19
}

func DecodeUImm(word uint32) int32 {
	return int32(word) >> 12
}

func DecodeJImm(word uint32) int32 {
	imm := (word>>31&1)<<20 | (word>>12&0xFF)<<12 | (word>>20&1)<<11 | (word>>21&0x3FF)<<1
	return int32(imm<<11) >> 11
}

// Opcode returns bits 0-6
func Opcode(word uint32) uint32 {
	return word & 0x7F
}
