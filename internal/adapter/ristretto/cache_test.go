package ristretto

import (
	"testing"

	"github.com/opsdeck/opsdeck/internal/port/cache/cachetest"
)

func TestComplianceSuite(t *testing.T) {
	c, err := New(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	cachetest.Run(t, c)
}
