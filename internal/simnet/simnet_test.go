// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package simnet

import (
	"testing"
	"time"

	"code.hybscloud.com/ntdcp"
)

func TestDriver_RandomIsDeterministicForSameSeed(t *testing.T) {
	d1 := NewDriver(42, time.Unix(0, 0))
	d2 := NewDriver(42, time.Unix(0, 0))
	for i := 0; i < 10; i++ {
		if d1.Random() != d2.Random() {
			t.Fatalf("same seed produced diverging sequences")
		}
	}
}

func TestDriver_AdvanceAndSet(t *testing.T) {
	start := time.Unix(1000, 0)
	d := NewDriver(1, start)
	d.Advance(5 * time.Second)
	if !d.Now().Equal(start.Add(5 * time.Second)) {
		t.Fatalf("Now()=%v, want %v", d.Now(), start.Add(5*time.Second))
	}
	d.Set(start)
	if !d.Now().Equal(start) {
		t.Fatalf("Set did not pin the clock")
	}
}

func TestMedium_BroadcastsToOtherClientsNotSelf(t *testing.T) {
	sys := NewDriver(1, time.Unix(0, 0))
	m := NewMedium()
	a := m.NewClient(sys, ntdcp.PhysicalOptions{})
	b := m.NewClient(sys, ntdcp.PhysicalOptions{})
	c := m.NewClient(sys, ntdcp.PhysicalOptions{})

	a.Send([]byte("hi"))

	if a.Incoming().Len() != 0 {
		t.Fatalf("sender must not receive its own transmission")
	}
	if b.Incoming().Len() != 2 || c.Incoming().Len() != 2 {
		t.Fatalf("every other client should receive the broadcast")
	}
}

func TestMedium_BrokenDropsAllSends(t *testing.T) {
	sys := NewDriver(1, time.Unix(0, 0))
	m := NewMedium()
	a := m.NewClient(sys, ntdcp.PhysicalOptions{})
	b := m.NewClient(sys, ntdcp.PhysicalOptions{})

	m.SetBroken(true)
	a.Send([]byte("lost"))
	if b.Incoming().Len() != 0 {
		t.Fatalf("a broken medium must silently drop sends")
	}

	m.SetBroken(false)
	a.Send([]byte("ok"))
	if b.Incoming().Len() == 0 {
		t.Fatalf("an unbroken medium should deliver sends again")
	}
}

func TestClient_BusyForTxTime(t *testing.T) {
	sys := NewDriver(1, time.Unix(0, 0))
	m := NewMedium()
	a := m.NewClient(sys, ntdcp.PhysicalOptions{TxTime: time.Second})

	a.Send([]byte("x"))
	if !a.Busy() {
		t.Fatalf("client should be busy immediately after Send with TxTime>0")
	}
	sys.Advance(time.Second)
	if a.Busy() {
		t.Fatalf("client should no longer be busy after TxTime has elapsed")
	}
}
