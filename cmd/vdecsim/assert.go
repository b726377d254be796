// assert.go provides assertion helpers for the decoder simulation demo.

package main

import (
	"context"

	"github.com/xaionaro-go/m2mcodec/logger"
)

func assert(ctx context.Context, isTrue bool, args ...any) {
	if !isTrue {
		logger.Panicf(ctx, "assertion failed: %v", args)
	}
}
