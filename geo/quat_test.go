// Copyright (c) 2026 by Koanworks

package geo

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func quatNear(a, b Quat) bool {
	// q and -q describe the same orientation
	if a.Dot(b) < 0 {
		b = b.Neg()
	}
	return math.Abs(a.W-b.W) < epsilon &&
		math.Abs(a.X-b.X) < epsilon &&
		math.Abs(a.Y-b.Y) < epsilon &&
		math.Abs(a.Z-b.Z) < epsilon
}

func TestFromYawRoundTrip(t *testing.T) {
	yaws := []float64{0, 0.5, 1.57, -1.2, 3.0, -3.0}
	for _, yaw := range yaws {
		got := FromYaw(yaw).Yaw()
		if math.Abs(got-yaw) > 1e-9 {
			t.Errorf("yaw %v round-tripped to %v", yaw, got)
		}
	}
}

func TestFromEulerYawOnlyMatchesFromYaw(t *testing.T) {
	q1 := FromYaw(0.7)
	q2 := FromEuler(Vec3{Y: 0.7})
	if !quatNear(q1, q2) {
		t.Errorf("FromYaw %v differs from FromEuler %v", q1, q2)
	}
}

func TestSlerpEndpoints(t *testing.T) {
	a := FromYaw(0.3)
	b := FromYaw(2.1)

	if got := Slerp(a, b, 0); !quatNear(got, a) {
		t.Errorf("t=0: got %v, want %v", got, a)
	}
	if got := Slerp(a, b, 1); !quatNear(got, b) {
		t.Errorf("t=1: got %v, want %v", got, b)
	}
}

func TestSlerpHalfway(t *testing.T) {
	a := FromYaw(0)
	b := FromYaw(1.0)

	got := Slerp(a, b, 0.5).Yaw()
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("halfway yaw is %v, want 0.5", got)
	}
}

func TestSlerpShortArc(t *testing.T) {
	// 350 degrees should interpolate through 0, not back through 180
	a := FromYaw(0.1)
	b := FromYaw(-0.1)

	got := Slerp(a, b, 0.5).Yaw()
	if math.Abs(got) > 1e-9 {
		t.Errorf("midpoint yaw is %v, want 0", got)
	}
}

func TestSlerpConvergesMonotonically(t *testing.T) {
	cur := FromYaw(0)
	target := FromYaw(2.5)

	prevDot := cur.Dot(target)
	for i := 0; i < 40; i++ {
		cur = Slerp(cur, target, 0.1)
		dot := cur.Dot(target)
		if dot < prevDot-epsilon {
			t.Fatalf("step %d: alignment regressed from %v to %v", i, prevDot, dot)
		}
		prevDot = dot
	}

	if math.Abs(cur.Yaw()-2.5) > 0.05 {
		t.Errorf("after 40 steps yaw is %v, want close to 2.5", cur.Yaw())
	}
}

func TestNormalizeZero(t *testing.T) {
	if got := (Quat{}).Normalize(); got != IdentityQuat() {
		t.Errorf("got %v, want identity", got)
	}
}
