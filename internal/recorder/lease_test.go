package recorder

import (
	"testing"
	"time"
)

func TestLeaseAcquireRelease(t *testing.T) {
	l := NewLease()
	if !l.Acquire() {
		t.Fatal("first Acquire should succeed")
	}
	if l.Acquire() {
		t.Fatal("second Acquire while held should fail")
	}
	l.Release()
	if !l.Acquire() {
		t.Fatal("Acquire after Release should succeed")
	}
}

func TestLeaseExpiresAfterHardExpiration(t *testing.T) {
	base := time.Unix(0, 0)
	cur := base
	l := &Lease{now: func() time.Time { return cur }}

	if !l.Acquire() {
		t.Fatal("initial Acquire should succeed")
	}
	cur = base.Add(hardExpiration + time.Second)
	if !l.Acquire() {
		t.Fatal("Acquire should succeed once the hard expiration has passed")
	}
}
