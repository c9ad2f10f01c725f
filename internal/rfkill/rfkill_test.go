package rfkill_test

import (
	"errors"
	"testing"

	"github.com/micro-nova/periphd/internal/rfkill"
)

type fakeOps struct {
	calls []bool
	err   error
}

func (f *fakeOps) SetBlock(blocked bool) error {
	f.calls = append(f.calls, blocked)
	return f.err
}

func TestAllocValidation(t *testing.T) {
	if _, err := rfkill.Alloc("", rfkill.TypeBluetooth, &fakeOps{}); !errors.Is(err, rfkill.ErrInvalid) {
		t.Errorf("empty name: err = %v, want ErrInvalid", err)
	}
	if _, err := rfkill.Alloc("bt", rfkill.TypeBluetooth, nil); !errors.Is(err, rfkill.ErrInvalid) {
		t.Errorf("nil ops: err = %v, want ErrInvalid", err)
	}
}

func TestRegisterAndSetBlocked(t *testing.T) {
	var changes []rfkill.Status
	reg := rfkill.NewRegistry(func(st rfkill.Status) { changes = append(changes, st) })
	ops := &fakeOps{}
	sw, err := rfkill.Alloc("bt", rfkill.TypeBluetooth, ops)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	sw.SetHWState(true)
	if err := reg.Register(sw); err != nil {
		t.Fatalf("Register: %v", err)
	}

	list := reg.List()
	if len(list) != 1 || !list[0].Blocked || list[0].Type != "bluetooth" {
		t.Fatalf("List = %+v, want one blocked bluetooth switch", list)
	}

	st, err := reg.SetBlocked("bt", false)
	if err != nil {
		t.Fatalf("SetBlocked: %v", err)
	}
	if st.SoftBlocked {
		t.Error("switch should be soft unblocked")
	}
	if !st.HardBlocked || !st.Blocked {
		t.Errorf("status = %+v, user unblock must not clear the hardware block", st)
	}
	if len(ops.calls) != 1 || ops.calls[0] != false {
		t.Errorf("driver calls = %v, want [false]", ops.calls)
	}
	if len(changes) != 1 {
		t.Errorf("onChange calls = %d, want 1", len(changes))
	}
}

func TestSetBlockedDriverError(t *testing.T) {
	reg := rfkill.NewRegistry(nil)
	ops := &fakeOps{err: errors.New("boom")}
	sw, _ := rfkill.Alloc("bt", rfkill.TypeBluetooth, ops)
	sw.SetHWState(true)
	_ = reg.Register(sw)

	if _, err := reg.SetBlocked("bt", false); err == nil {
		t.Fatal("expected driver error")
	}
	if !sw.Blocked() {
		t.Error("failed unblock should not change recorded state")
	}
}

func TestRegisterDuplicateAndUnknown(t *testing.T) {
	reg := rfkill.NewRegistry(nil)
	a, _ := rfkill.Alloc("bt", rfkill.TypeBluetooth, &fakeOps{})
	b, _ := rfkill.Alloc("bt", rfkill.TypeBluetooth, &fakeOps{})
	if err := reg.Register(a); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register(b); !errors.Is(err, rfkill.ErrExists) {
		t.Errorf("duplicate: err = %v, want ErrExists", err)
	}
	if _, err := reg.SetBlocked("wifi", true); !errors.Is(err, rfkill.ErrNotFound) {
		t.Errorf("unknown: err = %v, want ErrNotFound", err)
	}
}

func TestUnregisterAndDestroy(t *testing.T) {
	reg := rfkill.NewRegistry(nil)
	sw, _ := rfkill.Alloc("bt", rfkill.TypeBluetooth, &fakeOps{})
	_ = reg.Register(sw)

	if err := sw.Destroy(); !errors.Is(err, rfkill.ErrRegistered) {
		t.Errorf("destroy while registered: err = %v, want ErrRegistered", err)
	}
	reg.Unregister(sw)
	if len(reg.List()) != 0 {
		t.Error("switch should be gone after Unregister")
	}
	if err := sw.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if err := reg.Register(sw); !errors.Is(err, rfkill.ErrDestroyed) {
		t.Errorf("register destroyed: err = %v, want ErrDestroyed", err)
	}
}

func TestHardAndSoftBlockIndependent(t *testing.T) {
	reg := rfkill.NewRegistry(nil)
	ops := &fakeOps{}
	sw, _ := rfkill.Alloc("bt", rfkill.TypeBluetooth, ops)
	if err := reg.Register(sw); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if sw.Blocked() {
		t.Fatal("new switch should be unblocked")
	}

	if got := sw.SetHWState(true); !got {
		t.Error("SetHWState(true) should report blocked")
	}
	if len(ops.calls) != 0 {
		t.Errorf("SetHWState must not call the driver: calls = %v", ops.calls)
	}

	// Soft block and unblock while hard blocked still reach the driver.
	if _, err := reg.SetBlocked("bt", true); err != nil {
		t.Fatalf("SetBlocked(true): %v", err)
	}
	st, err := reg.SetBlocked("bt", false)
	if err != nil {
		t.Fatalf("SetBlocked(false): %v", err)
	}
	if len(ops.calls) != 2 {
		t.Errorf("driver calls = %v, want 2", ops.calls)
	}
	if st.SoftBlocked || !st.HardBlocked || !st.Blocked {
		t.Errorf("status = %+v, want hard block only", st)
	}

	// Clearing the hardware block leaves the soft state alone.
	_, _ = reg.SetBlocked("bt", true)
	if got := sw.SetHWState(false); !got {
		t.Error("soft block should keep the switch blocked")
	}
	if !sw.SoftBlocked() || sw.HardBlocked() {
		t.Errorf("soft=%v hard=%v, want soft only", sw.SoftBlocked(), sw.HardBlocked())
	}
	_, _ = reg.SetBlocked("bt", false)
	if sw.Blocked() {
		t.Error("switch should be fully unblocked")
	}
}

func TestBlockAll(t *testing.T) {
	reg := rfkill.NewRegistry(nil)
	btOps, wlOps := &fakeOps{}, &fakeOps{}
	bt, _ := rfkill.Alloc("bt", rfkill.TypeBluetooth, btOps)
	wl, _ := rfkill.Alloc("wl", rfkill.TypeWLAN, wlOps)
	_ = reg.Register(bt)
	_ = reg.Register(wl)

	if err := reg.BlockAll(rfkill.TypeBluetooth, true); err != nil {
		t.Fatalf("BlockAll: %v", err)
	}
	if len(btOps.calls) != 1 || len(wlOps.calls) != 0 {
		t.Errorf("bt calls = %v, wl calls = %v; only bluetooth should be blocked", btOps.calls, wlOps.calls)
	}
}
