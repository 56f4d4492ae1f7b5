package executor

import "context"

// Executor runs external commands. Abstracted so the ASR stage can be
// tested without a real whisper binary.
type Executor interface {
	// Execute runs a command and returns its combined stdout.
	Execute(ctx context.Context, name string, args ...string) (string, error)
	// ExecuteInDir runs a command in a specific working directory.
	ExecuteInDir(ctx context.Context, dir string, name string, args ...string) (string, error)
}
