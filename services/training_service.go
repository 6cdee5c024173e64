// services/training_service.go
package services

import (
	"fmt"
	"os/exec"

	"github.com/sirupsen/logrus"

	"github.com/seqlab/amrsync/config"
	"github.com/seqlab/amrsync/logger"
)

// TrainingService launches the external model-training tool against the
// mirrored genomes and the generated label files. The tool is a black box:
// we hand it directories, stream its output into our log and report its
// exit status.
type TrainingService struct {
	cfg *config.Config
}

func NewTrainingService(cfg *config.Config) *TrainingService {
	return &TrainingService{cfg: cfg}
}

// Run executes the configured training command, blocking until it exits.
// A disabled or unconfigured trainer is a logged no-op.
func (ts *TrainingService) Run() error {
	tc := ts.cfg.Training
	if !tc.Enabled || tc.Command == "" {
		logger.Log.Info("Training: disabled, skipping model training")
		return nil
	}

	args := append([]string{}, tc.Args...)
	args = append(args,
		"--genomes", ts.cfg.Paths.GenomesDir,
		"--labels", ts.cfg.Paths.LabelsDir,
	)

	logger.Log.Infof("Training: launching %s %v", tc.Command, args)

	cmd := exec.Command(tc.Command, args...)
	cmd.Stdout = logger.Writer(logrus.InfoLevel)
	cmd.Stderr = logger.Writer(logrus.ErrorLevel)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("training command %s failed: %w", tc.Command, err)
	}

	logger.Log.Info("Training: model training completed")
	return nil
}
