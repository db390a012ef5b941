package cop0

import (
	"testing"

	"github.com/kallistipsx/gopsx/test"
)

func TestEnterSetsVectorAndEPC(t *testing.T) {
	c := New()
	vector := c.Enter(ExcBreakpoint, 0x1000, false, nil)
	test.Equate(t, vector, uint32(vectorNormal))
	test.Equate(t, c.Read(RegEPC), uint32(0x1000))
}

func TestEnterInBranchDelaySetsCauseBit31AndBacksUpEPC(t *testing.T) {
	c := New()
	c.Enter(ExcBreakpoint, 0x1000, true, nil)
	test.Equate(t, c.Read(RegEPC), uint32(0xffc))
	test.Equate(t, bit31(c.Read(RegCAUSE)), true)
}

func bit31(v uint32) bool { return v&(1<<31) != 0 }

func TestEnterUsesBEVVector(t *testing.T) {
	c := New()
	c.Write(RegSR, 1<<srBEV)
	vector := c.Enter(ExcBreakpoint, 0x1000, false, nil)
	test.Equate(t, vector, uint32(vectorBEV))
}

func TestEnterPushesAndReturnPopsModeStack(t *testing.T) {
	c := New()
	c.Write(RegSR, 0x3) // IEc=1, KUc=1
	c.Enter(ExcSyscall, 0x2000, false, nil)
	test.Equate(t, c.Read(RegSR)&0x3f, uint32(0xc))
	c.Return()
	test.Equate(t, c.Read(RegSR)&0x3f, uint32(0x3))
}

func TestEnterRecordsBadVaddr(t *testing.T) {
	c := New()
	addr := uint32(0xdeadbeef)
	c.Enter(ExcAddressLoadError, 0x100, false, &addr)
	test.Equate(t, c.Read(RegBadVaddr), addr)
}
