package stabforest

import "go.uber.org/zap"

// nopLogger returns a logger that discards everything. Components fall
// back to it when constructed without an explicit *zap.Logger, matching
// the injected-logger-with-nop-default convention used throughout the
// zmux-server codebase (e.g. processmgr.NewProcessManager).
func nopLogger() *zap.Logger {
	return zap.NewNop()
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return nopLogger()
	}
	return log
}
