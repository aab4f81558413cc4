//go:build noexecctx

package execctx

func goid() uint64 { return 0 }
