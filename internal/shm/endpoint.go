package shm

import (
	"strconv"
	"strings"
)

// EndpointArgs is the result of parsing an SHM endpoint string.
type EndpointArgs struct {
	Name      string
	Slots     int64 // -1 = not specified; use the bind's compile-time default
	SlotBytes int64 // -1 = not specified
}

// ParseEndpoint parses an SHM endpoint string in either of two forms:
//
//	shm("name", slots=N, slot_bytes=M)   — explicit geometry override
//	my_ring  or  "my_ring"               — raw name, use configured geometry
//
// Mirrors pipit::shm::parse_shm_endpoint.
func ParseEndpoint(ep string) EndpointArgs {
	args := EndpointArgs{Slots: -1, SlotBytes: -1}

	paren := strings.Index(ep, "(")
	if paren >= 0 && ep[:paren] == "shm" {
		if q1 := strings.Index(ep, `"`); q1 >= 0 {
			if q2 := strings.Index(ep[q1+1:], `"`); q2 >= 0 {
				args.Name = ep[q1+1 : q1+1+q2]
			}
		}
		args.Slots = extractNamed(ep, "slots")
		args.SlotBytes = extractNamed(ep, "slot_bytes")
		return args
	}

	name := ep
	if len(name) >= 2 && strings.HasPrefix(name, `"`) && strings.HasSuffix(name, `"`) {
		name = name[1 : len(name)-1]
	}
	args.Name = name
	return args
}

func extractNamed(ep, key string) int64 {
	search := key + "="
	pos := strings.Index(ep, search)
	if pos < 0 {
		return -1
	}
	pos += len(search)
	end := pos
	for end < len(ep) && (ep[end] >= '0' && ep[end] <= '9') {
		end++
	}
	if end == pos {
		return -1
	}
	v, err := strconv.ParseInt(ep[pos:end], 10, 64)
	if err != nil {
		return -1
	}
	return v
}
