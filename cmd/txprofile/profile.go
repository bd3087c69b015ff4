package main

import (
	"os"
	"runtime"
	"runtime/pprof"

	"go.uber.org/zap"

	"github.com/ajitpratap0/txprofile/pkg/errors"
)

// profiling captures pprof profiles of the txprofile process itself
type profiling struct {
	cpuFile string
	memFile string
	cpu     *os.File
	logger  *zap.Logger
}

// start begins CPU profiling when a CPU profile file was requested
func (p *profiling) start() error {
	if p.cpuFile == "" {
		return nil
	}

	f, err := os.Create(p.cpuFile)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create CPU profile").
			WithDetail("path", p.cpuFile)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to start CPU profile")
	}
	p.cpu = f
	p.logger.Info("CPU profiling enabled", zap.String("path", p.cpuFile))
	return nil
}

// stop ends CPU profiling and writes the heap profile if requested
func (p *profiling) stop() {
	if p.cpu != nil {
		pprof.StopCPUProfile()
		if err := p.cpu.Close(); err != nil {
			p.logger.Warn("failed to close CPU profile", zap.Error(err))
		}
		p.cpu = nil
	}

	if p.memFile == "" {
		return
	}
	f, err := os.Create(p.memFile)
	if err != nil {
		p.logger.Warn("failed to create memory profile", zap.String("path", p.memFile), zap.Error(err))
		return
	}
	defer f.Close()

	runtime.GC() // Get up-to-date statistics
	if err := pprof.WriteHeapProfile(f); err != nil {
		p.logger.Warn("failed to write memory profile", zap.Error(err))
		return
	}
	p.logger.Info("memory profile written", zap.String("path", p.memFile))
}
