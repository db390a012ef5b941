package gte

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kallistipsx/gopsx/test"
)

// nrDivide approximates lhs/rhs scaled into a 1.16 fixed-point factor via
// factorTable's Newton-Raphson entries, saturating at 0x1ffff. Table-driven
// over three ratios sharing one divisor (so one factorTable entry) plus a
// zero divisor, which takes the saturated 0x1ffff result.
func TestReciprocalDivideTable(t *testing.T) {
	cases := []struct {
		name string
		lhs  uint16
		rhs  uint16
		want uint32
	}{
		{"identity ratio", 0x100, 0x100, 0x10000},
		{"half ratio", 0x80, 0x100, 0x8000},
		{"quarter ratio", 0x40, 0x100, 0x4000},
		{"zero divisor saturates", 0x100, 0, 0x1ffff},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, nrDivide(tc.lhs, tc.rhs))
		})
	}
}

// writeMatrixIdentity packs a 4.12 fixed-point identity matrix (diagonal
// 4096 = 1.0) into the five control words starting at base.
func writeMatrixIdentity(g *GTE, base int) {
	g.WriteControl(base+0, 0x1000) // rt[0].x = 4096 (1.0), rt[0].y = 0
	g.WriteControl(base+1, 0)      // rt[0].z = 0, rt[1].x = 0
	g.WriteControl(base+2, 0x1000) // rt[1].y = 4096, rt[1].z = 0
	g.WriteControl(base+3, 0)      // rt[2].x = 0, rt[2].y = 0
	g.WriteControl(base+4, 0x1000) // rt[2].z = 4096
}

func TestRTPSIdentityProjectsVectorUnchanged(t *testing.T) {
	g := New()
	writeMatrixIdentity(g, ctrlRT)
	g.WriteData(0, 100|(50<<16)) // v0 = (100, 50, 0)
	g.WriteData(1, 0)

	g.Command(0x80001) // RTPS, sf=1 (shift 12), lm=0

	test.Equate(t, int32ToI32(g.data[9]), int32(100))  // ir1
	test.Equate(t, int32ToI32(g.data[10]), int32(50))  // ir2
	test.Equate(t, int32ToI32(g.data[11]), int32(0))   // ir3
	test.Equate(t, g.data[19], uint32(0))              // sz3: z projected to 0

	// h == 0 forces the near-clip branch (sz=0 is never > h/2=0): the
	// projection factor saturates to 0x1ffff and the overflow flag (bit
	// 17) is set.
	test.Equate(t, g.Flags()&(1<<17) != 0, true)

	sx := int32(int16(uint16(g.data[14])))
	sy := int32(int16(uint16(g.data[14] >> 16)))
	test.Equate(t, sx, int32(199)) // (100 * 0x1ffff) >> 16
	test.Equate(t, sy, int32(99))  // (50 * 0x1ffff) >> 16
}

func TestRTPTPushesAllThreeDepthsInOrder(t *testing.T) {
	g := New()
	writeMatrixIdentity(g, ctrlRT)
	g.WriteData(0, 0)
	g.WriteData(1, 10) // v0.z = 10
	g.WriteData(2, 0)
	g.WriteData(3, 20) // v1.z = 20
	g.WriteData(4, 0)
	g.WriteData(5, 30) // v2.z = 30

	g.Command(0x80030) // RTPT, sf=1

	// Three successive depth pushes leave the oldest (v0's) two slots
	// back, the newest (v2's) at SZ3.
	test.Equate(t, g.data[17], uint32(10))
	test.Equate(t, g.data[18], uint32(20))
	test.Equate(t, g.data[19], uint32(30))
}

func TestIRGBORGBPackAndUnpack(t *testing.T) {
	g := New()
	g.WriteData(28, 0x1f|(0x0a<<5)|(0x00<<10))

	test.Equate(t, int32ToI32(g.data[9])>>7, int32(0x1f))
	test.Equate(t, int32ToI32(g.data[10])>>7, int32(0x0a))
	test.Equate(t, int32ToI32(g.data[11])>>7, int32(0x00))

	test.Equate(t, g.ReadData(29), uint32(0x1f|(0x0a<<5)))
}

func TestLZCSComputesLeadingZerosOrOnes(t *testing.T) {
	g := New()
	g.WriteData(30, 0x0000ffff)
	test.Equate(t, g.ReadData(31), uint32(16))

	g.WriteData(30, 0xffff0000)
	test.Equate(t, g.ReadData(31), uint32(16))
}

func TestNCLIPSumsCrossProducts(t *testing.T) {
	g := New()
	g.WriteData(12, uint32(uint16(0))|uint32(uint16(0))<<16)
	g.WriteData(13, uint32(uint16(4))|uint32(uint16(0))<<16)
	g.WriteData(14, uint32(uint16(0))|uint32(uint16(4))<<16)

	g.Command(0x06) // NCLIP

	// Cross product of (0,0), (4,0), (0,4): x0(y1-y2)+x1(y2-y0)+x2(y0-y1)
	// = 0*(0-4) + 4*(4-0) + 0*(0-0) = 16.
	test.Equate(t, int32ToI32(g.data[24]), int32(16))
}
