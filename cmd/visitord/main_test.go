package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type syncBuffer struct {
	bytes.Buffer
	syncs int
}

func (b *syncBuffer) Sync() error {
	b.syncs++
	return nil
}

func TestExitCode(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		wantCode int
		wantLog  string
	}{
		{name: "clean shutdown", wantCode: 0, wantLog: "server gracefully stopped"},
		{name: "server error", err: errors.New("listen tcp :8080: address already in use"), wantCode: 1, wantLog: "address already in use"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := &syncBuffer{}
			core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), out, zapcore.InfoLevel)

			assert.Equal(t, tc.wantCode, exitCode(zap.New(core), tc.err))
			assert.Contains(t, out.String(), tc.wantLog)
			assert.Equal(t, 1, out.syncs, "logger flushed before exit")
		})
	}
}
