package records

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// CheckFlag is a bitset describing one probe result: which kind of probe
// ran, which IP family it targeted, and whether it succeeded.
type CheckFlag uint16

const (
	// FlagSuccess marks the check as successful. A check without this
	// flag is a failure.
	FlagSuccess CheckFlag = 1 << iota
	FlagIPv4
	FlagIPv6
	FlagTypeHTTP
	FlagTypeICMP4
	FlagTypeICMP6
)

// Has reports whether all bits of other are set in f.
func (f CheckFlag) Has(other CheckFlag) bool {
	return f&other == other
}

// CheckType is the probe category derived from a check's flag bits.
type CheckType uint8

const (
	TypeUnknown CheckType = iota
	TypeHTTP
	TypeICMPv4
	TypeICMPv6
)

// AllTypes lists the known probe categories in report order.
func AllTypes() []CheckType {
	return []CheckType{TypeHTTP, TypeICMPv4, TypeICMPv6}
}

func (t CheckType) String() string {
	switch t {
	case TypeHTTP:
		return "HTTP"
	case TypeICMPv4:
		return "ICMPv4"
	case TypeICMPv6:
		return "ICMPv6"
	default:
		return "Unknown"
	}
}

// IPFamily is the address family a check targeted.
type IPFamily uint8

const (
	FamilyIPv4 IPFamily = iota
	FamilyIPv6
)

func (f IPFamily) String() string {
	if f == FamilyIPv6 {
		return "IPv6"
	}
	return "IPv4"
}

// AmbiguousFamilyError reports a check whose family flags do not name
// exactly one IP family. Such checks are accepted and stored, but family
// statistics skip them.
type AmbiguousFamilyError struct {
	Flags CheckFlag
}

func (e *AmbiguousFamilyError) Error() string {
	return fmt.Sprintf("check flags do not name exactly one IP family: %#04x", uint16(e.Flags))
}

// Check is one completed probe attempt. Immutable once created.
type Check struct {
	// Timestamp is the probe start as unix seconds.
	Timestamp int64     `cbor:"1,keyasint"`
	Flags     CheckFlag `cbor:"2,keyasint"`
	// LatencyMs is nil when no response arrived.
	LatencyMs *int64 `cbor:"3,keyasint,omitempty"`
	Target    string `cbor:"4,keyasint"`
}

// New builds a check for the given probe instant, outcome flags and target.
func New(ts time.Time, flags CheckFlag, latencyMs *int64, target string) Check {
	return Check{
		Timestamp: ts.Unix(),
		Flags:     flags,
		LatencyMs: latencyMs,
		Target:    target,
	}
}

// Time returns the probe timestamp as wall-clock time.
func (c Check) Time() time.Time {
	return time.Unix(c.Timestamp, 0).UTC()
}

// IsSuccess reports whether the probe succeeded.
func (c Check) IsSuccess() bool {
	return c.Flags.Has(FlagSuccess)
}

// Type derives the probe category from the flag bits. A check with no
// category bit, or more than one, is TypeUnknown.
func (c Check) Type() CheckType {
	switch {
	case c.Flags.Has(FlagTypeHTTP) && !c.Flags.Has(FlagTypeICMP4) && !c.Flags.Has(FlagTypeICMP6):
		return TypeHTTP
	case c.Flags.Has(FlagTypeICMP4) && !c.Flags.Has(FlagTypeHTTP) && !c.Flags.Has(FlagTypeICMP6):
		return TypeICMPv4
	case c.Flags.Has(FlagTypeICMP6) && !c.Flags.Has(FlagTypeHTTP) && !c.Flags.Has(FlagTypeICMP4):
		return TypeICMPv6
	default:
		return TypeUnknown
	}
}

// Family derives the IP family from the flag bits. A check may legally
// carry both family bits or neither; that case yields an
// AmbiguousFamilyError so callers can exclude and report it.
func (c Check) Family() (IPFamily, error) {
	v4, v6 := c.Flags.Has(FlagIPv4), c.Flags.Has(FlagIPv6)
	switch {
	case v4 && !v6:
		return FamilyIPv4, nil
	case v6 && !v4:
		return FamilyIPv6, nil
	default:
		return 0, &AmbiguousFamilyError{Flags: c.Flags}
	}
}

// Hash returns the hex SHA-256 of the check's canonical byte form. The
// canonical form covers every field, so two checks hash equal exactly
// when their contents are equal.
func (c Check) Hash() string {
	h := sha256.New()
	binary.Write(h, binary.BigEndian, c.Timestamp)
	binary.Write(h, binary.BigEndian, uint16(c.Flags))
	if c.LatencyMs != nil {
		binary.Write(h, binary.BigEndian, *c.LatencyMs)
	}
	h.Write([]byte(c.Target))
	return hex.EncodeToString(h.Sum(nil))
}

func (c Check) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", c.Time().Format(time.RFC3339), c.Type(), c.Target)
	if c.IsSuccess() {
		b.WriteString(" ok")
	} else {
		b.WriteString(" failed")
	}
	if c.LatencyMs != nil {
		fmt.Fprintf(&b, " (%dms)", *c.LatencyMs)
	}
	return b.String()
}
