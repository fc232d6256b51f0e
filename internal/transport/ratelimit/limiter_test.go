package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNew_Unlimited(t *testing.T) {
	var l *Limiter = New("eventbrite", 0)
	if l != nil {
		t.Fatal("expected nil limiter for rpm=0")
	}
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("nil limiter must not block: %v", err)
	}
}

func TestWait_BurstThenCancel(t *testing.T) {
	// 5 rpm gives burst 1: the first call passes, the second must wait ~12s.
	l := New("serpapi", 5)
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	if err == nil {
		t.Fatal("expected second wait to fail under a short deadline")
	}
	if errors.Is(err, context.Canceled) {
		t.Errorf("unexpected cancellation error: %v", err)
	}
}

func TestNew_BurstScalesWithQuota(t *testing.T) {
	l := New("generation", 600)
	for i := range 60 {
		if !l.lim.Allow() {
			t.Fatalf("expected burst of 60, blocked at %d", i)
		}
	}
}
