package receiver

import (
	"encoding/binary"
	"math"

	"github.com/tmineno/pipeit-sub000/internal/wire"
)

// DtypeSampleBytes returns the on-wire byte size of one sample of dtype,
// or 0 for an unrecognized dtype.
func DtypeSampleBytes(dtype wire.DType) int {
	return dtype.Size()
}

// ConvertToFloat converts sampleCount samples of the given dtype from
// payload into out, returning the number of float samples written.
// payload must hold at least sampleCount samples of dtype's size.
func ConvertToFloat(payload []byte, sampleCount uint32, dtype wire.DType, out []float32) int {
	switch dtype {
	case wire.DTypeF32:
		return convertF32(payload, sampleCount, out)
	case wire.DTypeI32:
		return convertI32(payload, sampleCount, out)
	case wire.DTypeCF32:
		return convertCF32Magnitude(payload, sampleCount, out)
	case wire.DTypeF64:
		return convertF64(payload, sampleCount, out)
	case wire.DTypeI16:
		return convertI16(payload, sampleCount, out)
	case wire.DTypeI8:
		return convertI8(payload, sampleCount, out)
	default:
		return 0
	}
}

// ConvertToFloatBounded is ConvertToFloat but never reads beyond
// len(payload), clamping sampleCount down if the payload is short.
func ConvertToFloatBounded(payload []byte, sampleCount uint32, dtype wire.DType, out []float32) int {
	sampleBytes := DtypeSampleBytes(dtype)
	if sampleBytes == 0 {
		return 0
	}
	bounded := min(int(sampleCount), len(payload)/sampleBytes)
	return ConvertToFloat(payload, uint32(bounded), dtype, out)
}

func convertF32(payload []byte, n uint32, out []float32) int {
	for i := uint32(0); i < n; i++ {
		bits := binary.LittleEndian.Uint32(payload[i*4 : i*4+4])
		out[i] = math.Float32frombits(bits)
	}
	return int(n)
}

func convertI32(payload []byte, n uint32, out []float32) int {
	for i := uint32(0); i < n; i++ {
		v := int32(binary.LittleEndian.Uint32(payload[i*4 : i*4+4]))
		out[i] = float32(v)
	}
	return int(n)
}

func convertF64(payload []byte, n uint32, out []float32) int {
	for i := uint32(0); i < n; i++ {
		bits := binary.LittleEndian.Uint64(payload[i*8 : i*8+8])
		out[i] = float32(math.Float64frombits(bits))
	}
	return int(n)
}

func convertI16(payload []byte, n uint32, out []float32) int {
	for i := uint32(0); i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(payload[i*2 : i*2+2]))
		out[i] = float32(v)
	}
	return int(n)
}

func convertI8(payload []byte, n uint32, out []float32) int {
	for i := uint32(0); i < n; i++ {
		out[i] = float32(int8(payload[i]))
	}
	return int(n)
}

func convertCF32Magnitude(payload []byte, n uint32, out []float32) int {
	for i := uint32(0); i < n; i++ {
		reBits := binary.LittleEndian.Uint32(payload[i*8 : i*8+4])
		imBits := binary.LittleEndian.Uint32(payload[i*8+4 : i*8+8])
		re := math.Float32frombits(reBits)
		im := math.Float32frombits(imBits)
		out[i] = float32(math.Sqrt(float64(re*re + im*im)))
	}
	return int(n)
}
