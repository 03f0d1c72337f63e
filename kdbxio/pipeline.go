package kdbxio

import "github.com/ledgerwatch/kdbxcore/log"

// stage is one named step of the load/save pipeline, mirroring the
// teacher's migrations.Migration{Name, Up} shape: a named, ordered
// unit of work that the orchestrator logs and can fail independently.
type stage struct {
	name string
	run  func() error
}

// runStages executes stages in order, logging each by name at Debug
// and stopping at the first error.
func runStages(logger log.Logger, stages []stage) error {
	for _, s := range stages {
		logger.Debug("pipeline stage", "name", s.name)
		if err := s.run(); err != nil {
			return err
		}
	}
	return nil
}
