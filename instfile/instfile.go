// Package instfile parses the whitespace-tokenized instruction file
// format that drives the simulator: decimal $-prefixed arguments, one
// record per recognized opcode, unrecognized tokens skipped as noise.
package instfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrParse marks a malformed record: a recognized opcode with a missing
// `$` prefix or a non-numeric argument. The offending record is skipped
// rather than aborting the rest of the file.
var ErrParse = errors.New("malformed instruction")

// Builder receives parsed records in the order they are read. system.System
// implements it.
type Builder interface {
	SetConfig(cacheCount, blockSize, policyNum uint32)
	SetCacheDimension(level, totalSize, setAssoc uint32) error
	SetCacheLatency(level uint32, latency uint64) error
	SetMemoryLatency(latency uint64)
	InitCache(level uint32) error
	TaskRead(address uint32, arriveTime uint64)
	TaskWrite(address uint32, arriveTime uint64)
	TaskReportRate(level uint32, arriveTime uint64)
	TaskReportImage(level uint32, arriveTime uint64)
	InitSystem()
}

var arity = map[string]int{
	"con": 3,
	"scd": 3,
	"scl": 2,
	"sml": 1,
	"inc": 1,
	"tre": 2,
	"twr": 2,
	"pcr": 2,
	"pci": 2,
	"ins": 0,
	"hat": 0,
}

// Parse reads r token by token, dispatching each recognized opcode and
// its arguments to b. It stops at `hat`, treating it as a parsing-halt
// rather than an enqueued Halt task, matching the original source's
// behavior. Malformed records are reported via warn (if non-nil) and
// skipped; unrecognized tokens are silently skipped as noise.
func Parse(r io.Reader, b Builder, warn func(error)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	report := func(err error) {
		if warn != nil {
			warn(err)
		}
	}

	for sc.Scan() {
		op := sc.Text()
		n, recognized := arity[op]
		if !recognized {
			continue
		}
		if op == "hat" {
			return nil
		}

		args, err := readArgs(sc, n)
		if err != nil {
			report(fmt.Errorf("%s: %w", op, err))
			continue
		}

		dispatch(op, args, b, report)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("instfile: scan: %w", err)
	}
	return nil
}

func readArgs(sc *bufio.Scanner, n int) ([]uint32, error) {
	args := make([]uint32, n)
	for i := 0; i < n; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("%w: expected %d argument(s), ran out of input", ErrParse, n)
		}
		v, err := parseArg(sc.Text())
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func parseArg(tok string) (uint32, error) {
	rest, ok := strings.CutPrefix(tok, "$")
	if !ok {
		return 0, fmt.Errorf("%w: %q missing $ prefix", ErrParse, tok)
	}
	v, err := strconv.ParseUint(rest, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrParse, tok, err)
	}
	return uint32(v), nil
}

func dispatch(op string, a []uint32, b Builder, report func(error)) {
	switch op {
	case "con":
		b.SetConfig(a[0], a[1], a[2])
	case "scd":
		if err := b.SetCacheDimension(a[0], a[1], a[2]); err != nil {
			report(err)
		}
	case "scl":
		if err := b.SetCacheLatency(a[0], uint64(a[1])); err != nil {
			report(err)
		}
	case "sml":
		b.SetMemoryLatency(uint64(a[0]))
	case "inc":
		if err := b.InitCache(a[0]); err != nil {
			report(err)
		}
	case "tre":
		b.TaskRead(a[0], uint64(a[1]))
	case "twr":
		b.TaskWrite(a[0], uint64(a[1]))
	case "pcr":
		b.TaskReportRate(a[0], uint64(a[1]))
	case "pci":
		b.TaskReportImage(a[0], uint64(a[1]))
	case "ins":
		b.InitSystem()
	}
}
