package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestGetSetRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr(), "", 0)
	defer c.Close()

	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	if err := c.Set(ctx, "k", payload{Name: "tripod", Count: 3}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got payload
	found, err := c.Get(ctx, "k", &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found {
		t.Fatal("expected key to exist")
	}
	if got.Name != "tripod" || got.Count != 3 {
		t.Fatalf("unexpected value: %+v", got)
	}
}

func TestGetMissingKey(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr(), "", 0)
	defer c.Close()

	var dest string
	found, err := c.Get(context.Background(), "nope", &dest)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Fatal("expected miss")
	}
}

func TestMarkOnceIsFirstWriterOnly(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr(), "", 0)
	defer c.Close()

	ctx := context.Background()

	first, err := c.MarkOnce(ctx, "cb:ws_CO_123", time.Hour)
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if !first {
		t.Fatal("first mark should win")
	}

	second, err := c.MarkOnce(ctx, "cb:ws_CO_123", time.Hour)
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if second {
		t.Fatal("second mark must be rejected")
	}
}
