package cdrom

import (
	coreerr "github.com/kallistipsx/gopsx/errors"
	"github.com/kallistipsx/gopsx/logger"
)

// Command opcodes (§4.8).
const (
	cmdStatus   uint8 = 0x01
	cmdSetLoc   uint8 = 0x02
	cmdReadN    uint8 = 0x06
	cmdPause    uint8 = 0x09
	cmdInit     uint8 = 0x0a
	cmdSetMode  uint8 = 0x0e
	cmdSeekL    uint8 = 0x15
	cmdTest     uint8 = 0x19
	cmdGetID    uint8 = 0x1a
	cmdReadTOC  uint8 = 0x1e
)

// execCmd runs the command latched by the most recent write to the
// command port. Per §7's resolution for "command issued while a previous
// one is still pending", a command arriving while irqFlags is still
// asserted (the host hasn't acknowledged the previous response) is
// logged and dropped rather than executed.
func (c *CdRom) execCmd() {
	if c.irqFlags != 0 {
		logger.Logf("cdrom", "%v", coreerr.Categorized(coreerr.CategoryCDROM, coreerr.CommandWhilePending, c.cmd))
		return
	}

	cmd := c.cmd
	c.cmdPending = false
	c.responseFifo.clear()

	switch cmd {
	case cmdStatus:
		c.finishCmd(intAck)

	case cmdSetLoc:
		m, okM := c.argFifo.pop(), true
		s := c.argFifo.pop()
		f := c.argFifo.pop()
		msf, ok := msfFromBCD(m, s, f)
		if !ok {
			logger.Logf("cdrom", "%v", coreerr.Categorized(coreerr.CategoryCDROM, coreerr.InvalidBCDArgument, m))
			okM = false
		}
		if okM {
			c.pendingSeek = msf
			c.hasSeek = true
		}
		// The source leaves the drive in a "waiting" state here that
		// shares read_n's fallthrough behaviour with Paused/Idle; ported
		// as a distinct ReadingToc-shaped wait state for fidelity.
		c.state = driveState{kind: driveReadingToc}
		c.finishCmd(intAck)

	case cmdReadN:
		c.finishCmd(intAck)

		if c.state.kind == driveSeeking && c.state.after == afterRead {
			if !c.hasSeek || c.pendingSeek == c.state.seekTarget {
				return
			}
		}
		if c.state.kind == driveReading || c.state.kind == drivePaused {
			if !c.hasSeek {
				c.startRead()
				return
			}
		}
		if c.hasSeek {
			c.startSeek(seekData, afterRead)
		} else if c.state.kind == driveSeeking {
			c.state.after = afterRead
		} else {
			c.startRead()
		}

	case cmdPause:
		c.finishCmd(intAck)
		cycles := uint64(1_000_000)
		if c.state.kind == drivePaused || c.state.kind == driveIdle {
			cycles = 9_000
		}
		c.state = driveState{kind: drivePaused}
		c.scheduleResponse(cycles, cmdPause)

	case cmdInit:
		c.finishCmd(intAck)
		c.state = driveState{kind: drivePaused}
		c.position = Msf{}
		c.hasSeek = false
		c.scheduleResponse(900_000, cmdInit)

	case cmdSetMode:
		c.mode = modeReg(c.argFifo.pop())
		c.finishCmd(intAck)

	case cmdSeekL:
		cycles := c.startSeek(seekData, afterPause)
		c.finishCmd(intAck)
		c.scheduleResponse(cycles, cmdSeekL)

	case cmdTest:
		switch c.argFifo.pop() {
		case 0x20:
			c.responseFifo.push(0x98)
			c.responseFifo.push(0x06)
			c.responseFifo.push(0x10)
			c.responseFifo.push(0xc3)
			c.setInterrupt(intAck)
		default:
			logger.Log("cdrom", "unsupported test sub-function")
		}

	case cmdGetID:
		if !c.disc.IsLoaded() {
			c.responseFifo.push(0x11)
			c.responseFifo.push(0x80)
			c.setInterrupt(intError)
		} else {
			c.finishCmd(intAck)
			c.scheduleResponse(33_868, cmdGetID)
		}

	case cmdReadTOC:
		c.state = driveState{kind: driveReading}
		c.finishCmd(intAck)
		c.scheduleResponse(30_000_000, cmdReadTOC)

	default:
		logger.Logf("cdrom", "%v", coreerr.Categorized(coreerr.CategoryCDROM, coreerr.UnknownCommand, cmd))
	}

	c.argFifo.clear()
}

// Response runs the deferred completion half of a command whose drive
// effect (or identification handshake) takes longer than its initial Ack,
// scheduled by execCmd via scheduleResponse and dispatched here when the
// owning EventCDROMResponse fires.
func (c *CdRom) Response(cmd uint8) {
	switch cmd {
	case cmdInit:
		c.finishCmd(intComplete)

	case cmdPause:
		c.state = driveState{kind: drivePaused}
		c.finishCmd(intComplete)

	case cmdReadTOC:
		c.state = driveState{kind: drivePaused}
		c.finishCmd(intComplete)

	case cmdSeekL:
		c.finishCmd(intComplete)

	case cmdGetID:
		c.state = driveState{kind: driveIdle}
		c.responseFifo.clear()
		c.responseFifo.push(c.driveStat())
		c.responseFifo.push(0x00)
		c.responseFifo.push(0x20)
		c.responseFifo.push(0x00)
		c.responseFifo.push('S')
		c.responseFifo.push('C')
		c.responseFifo.push('E')
		c.responseFifo.push('A')
		c.setInterrupt(intComplete)

	default:
		logger.Logf("cdrom", "deferred response for unhandled command %#02x", cmd)
	}
}
