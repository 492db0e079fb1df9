// Package main is a minimal control-program fixture compiled with
// -buildmode=plugin by the end-to-end control-socket suite. It exposes
// exactly the symbol contract internal/program.Open requires, plus the
// optional debug symbols exercised by scenarios E4 and E5. Go's plugin
// package resolves an exported package-level variable symbol to a pointer
// to that variable, so CommonTicktimeNs and ProgramMD5 are declared as
// plain int64/string, not pointers.
package main

import "unsafe"

// CommonTicktimeNs is looked up as *int64.
var CommonTicktimeNs int64 = 10_000_000

// ProgramMD5 is looked up as *string.
var ProgramMD5 string = "abcdef1234567890123456789012345678"

var vars = [][]byte{{0x01, 0x02}, {0x03, 0x04}, {0x05, 0x06, 0x07}}

var traceFlags = make([]bool, len(vars))

var endianness uint8

func ConfigInit() {}

func ConfigRun(tick uint64) {}

func GlueVars() {}

func UpdateTime() {}

func SetBufferPointers() {}

func SetEndianness(e uint8) { endianness = e }

func GetVarCount() uint16 { return uint16(len(vars)) }

func GetVarSize(idx uint16) uintptr { return uintptr(len(vars[idx])) }

func GetVarAddr(idx uint16) uintptr { return uintptr(unsafe.Pointer(&vars[idx][0])) }

func SetTrace(idx uint16, forced bool, value uintptr) { traceFlags[idx] = forced }
