package control

import (
	"unsafe"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/program"
)

// Maximum response frame size, shared by the GET-family function codes'
// truncation rule (spec §4.7.1).
const maxDebugFrame = 1400

const (
	statusOK           = 0x7E
	statusOutOfBounds  = 0x81
	statusOutOfMemory  = 0x82
	funcDebugInfo      = 0x41
	funcDebugSet       = 0x42
	funcDebugGet       = 0x43
	funcDebugGetList   = 0x44
	funcDebugGetMD5    = 0x45
)

// processDebugFrame implements the five debug function codes against a
// loaded program handle. It reads the request frame in buf and returns a
// newly built response frame; buf itself is not modified. tick is the
// current scan cycle counter, used by the 0x43/0x44 response headers. A
// nil return with ok=false means "unknown function code" (or an empty
// frame); the caller reports ERROR_PROCESSING.
func processDebugFrame(handle *program.Handle, buf []byte, tick uint64) (out []byte, ok bool) {
	if len(buf) == 0 {
		return nil, false
	}

	switch buf[0] {
	case funcDebugInfo:
		return debugInfo(handle), true
	case funcDebugSet:
		return debugSet(handle, buf), true
	case funcDebugGet:
		return debugGet(handle, buf, uint32(tick)), true
	case funcDebugGetList:
		return debugGetList(handle, buf, uint32(tick)), true
	case funcDebugGetMD5:
		return debugGetMD5(handle, buf), true
	default:
		return nil, false
	}
}

func varCount(handle *program.Handle) uint16 {
	if handle.Bindings.GetVarCount == nil {
		return 0
	}
	return (*handle.Bindings.GetVarCount)()
}

func debugInfo(handle *program.Handle) []byte {
	count := varCount(handle)
	return []byte{funcDebugInfo, byte(count >> 8), byte(count)}
}

func debugSet(handle *program.Handle, buf []byte) []byte {
	if len(buf) < 6 {
		return []byte{funcDebugSet, statusOutOfBounds}
	}
	varidx := uint16(buf[1])<<8 | uint16(buf[2])
	flag := buf[3]
	length := uint16(buf[4])<<8 | uint16(buf[5])

	if varidx >= varCount(handle) || int(length) > maxDebugFrame-7 {
		return []byte{funcDebugSet, statusOutOfBounds}
	}
	if handle.Bindings.SetTrace == nil {
		return []byte{funcDebugSet, statusOutOfBounds}
	}

	value := buf[6:]
	var valuePtr uintptr
	if len(value) > 0 {
		valuePtr = uintptr(unsafe.Pointer(&value[0]))
	}
	(*handle.Bindings.SetTrace)(varidx, flag != 0, valuePtr)

	return []byte{funcDebugSet, statusOK}
}

func debugGet(handle *program.Handle, buf []byte, tick uint32) []byte {
	if len(buf) < 5 {
		return []byte{funcDebugGet, statusOutOfBounds}
	}
	start := uint16(buf[1])<<8 | uint16(buf[2])
	end := uint16(buf[3])<<8 | uint16(buf[4])
	count := varCount(handle)

	if start > end || end >= count {
		return []byte{funcDebugGet, statusOutOfBounds}
	}

	return copyVariableRange(handle, funcDebugGet, start, end, tick)
}

func debugGetList(handle *program.Handle, buf []byte, tick uint32) []byte {
	if len(buf) < 3 {
		return []byte{funcDebugGetList, statusOutOfBounds}
	}
	n := int(uint16(buf[1])<<8 | uint16(buf[2]))
	if n > 256 {
		return []byte{funcDebugGetList, statusOutOfMemory}
	}
	if len(buf) < 3+2*n {
		return []byte{funcDebugGetList, statusOutOfBounds}
	}

	count := varCount(handle)
	indices := make([]uint16, n)
	for i := 0; i < n; i++ {
		idx := uint16(buf[3+2*i])<<8 | uint16(buf[3+2*i+1])
		if idx >= count {
			return []byte{funcDebugGetList, statusOutOfBounds}
		}
		indices[i] = idx
	}

	header := make([]byte, 10)
	header[0] = funcDebugGetList
	header[1] = statusOK
	header[4] = byte(tick >> 24)
	header[5] = byte(tick >> 16)
	header[6] = byte(tick >> 8)
	header[7] = byte(tick)

	out := append([]byte(nil), header...)
	lastIdx := uint16(0)
	size := 0

	for _, idx := range indices {
		val := variableBytes(handle, idx)
		if len(out)+len(val) > maxDebugFrame {
			break
		}
		out = append(out, val...)
		size += len(val)
		lastIdx = idx
	}

	out[2] = byte(lastIdx >> 8)
	out[3] = byte(lastIdx)
	out[8] = byte(size >> 8)
	out[9] = byte(size)
	return out
}

func debugGetMD5(handle *program.Handle, buf []byte) []byte {
	if len(buf) < 3 {
		return []byte{funcDebugGetMD5, statusOutOfBounds}
	}
	a, b := buf[1], buf[2]

	switch {
	case a == 0xDE && b == 0xAD:
		if handle.Bindings.SetEndianness != nil {
			(*handle.Bindings.SetEndianness)(0)
		}
	case a == 0xAD && b == 0xDE:
		if handle.Bindings.SetEndianness != nil {
			(*handle.Bindings.SetEndianness)(1)
		}
	default:
		return []byte{funcDebugGetMD5, statusOutOfBounds}
	}

	md5 := handle.MD5Hex()
	out := make([]byte, 0, 2+len(md5)+1)
	out = append(out, funcDebugGetMD5, statusOK)
	out = append(out, []byte(md5)...)
	out = append(out, 0x00)
	return out
}

func variableBytes(handle *program.Handle, idx uint16) []byte {
	if handle.Bindings.GetVarSize == nil || handle.Bindings.GetVarAddr == nil {
		return nil
	}
	size := (*handle.Bindings.GetVarSize)(idx)
	addr := (*handle.Bindings.GetVarAddr)(idx)
	if size == 0 || addr == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size))
}

func copyVariableRange(handle *program.Handle, funcCode byte, start, end uint16, tick uint32) []byte {
	header := make([]byte, 10)
	header[0] = funcCode
	header[1] = statusOK
	header[4] = byte(tick >> 24)
	header[5] = byte(tick >> 16)
	header[6] = byte(tick >> 8)
	header[7] = byte(tick)

	out := append([]byte(nil), header...)
	lastIdx := start
	size := 0

	for idx := start; idx <= end; idx++ {
		val := variableBytes(handle, idx)
		if len(out)+len(val) > maxDebugFrame {
			break
		}
		out = append(out, val...)
		size += len(val)
		lastIdx = idx
		if idx == end {
			break
		}
	}

	out[2] = byte(lastIdx >> 8)
	out[3] = byte(lastIdx)
	out[8] = byte(size >> 8)
	out[9] = byte(size)
	return out
}
