package main

import (
	"fmt"
	"strconv"
)

// strictUint is a flag.Value that only accepts a canonical unsigned
// decimal integer: whatever Set receives must format back to exactly
// the same string. strconv.ParseUint in base 10 already rejects a sign
// and trailing garbage; the round-trip check additionally rejects
// leading zeros, which ParseUint alone accepts.
type strictUint struct {
	value uint64
	set   bool
}

func (u *strictUint) String() string {
	if !u.set {
		return ""
	}
	return strconv.FormatUint(u.value, 10)
}

func (u *strictUint) Set(s string) error {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("%q is not an unsigned decimal integer", s)
	}
	if strconv.FormatUint(v, 10) != s {
		return fmt.Errorf("%q does not round-trip as a canonical unsigned decimal integer", s)
	}
	u.value = v
	u.set = true
	return nil
}
