// internal/ui/recovery.go
package ui

import (
	"fmt"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// run runs program, converting a panic in the model into an error.
func run(program *tea.Program, logger *zap.Logger) (model tea.Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("UI panic: %v", r)
			if logger != nil {
				logger.Error("UI panic recovered",
					zap.Any("panic", r),
					zap.String("stack", string(debug.Stack())))
			}
		}
	}()

	model, err = program.Run()
	if err != nil {
		return model, fmt.Errorf("UI error: %w", err)
	}
	return model, nil
}
