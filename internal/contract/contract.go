// Package contract models the contract-under-test handle that harness checks
// run against. The concrete contract implementation is an external capability;
// everything here programs against the Contract interface.
package contract

// Contract is the capability a deployed contract exposes to the harness:
// a numeric value slot and its setter. Fuzz campaigns run against the real
// compiled artifact; in-process checks run against a stub.
type Contract interface {
	Value() int64
	SetValue(v int64)
}

// StubContract is an explicit in-process stand-in for a deployed contract.
// A fresh instance starts with a zero value; the setter persists exactly
// the given value.
type StubContract struct {
	value int64
}

func NewStubContract() *StubContract {
	return &StubContract{}
}

func (c *StubContract) Value() int64 {
	return c.value
}

func (c *StubContract) SetValue(v int64) {
	c.value = v
}
