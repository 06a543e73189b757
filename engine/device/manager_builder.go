package device

import "time"

// ManagerBuilderOption is a functional option applied to a Manager during construction via NewManager.
type ManagerBuilderOption func(*managerImpl)

// WithFramesInFlight sets the number of frame slots. The default is 2.
//
// Parameters:
//   - n: the number of frames the CPU may record ahead of the GPU plus one
//
// Returns:
//   - ManagerBuilderOption: a function that applies the option to a manager
func WithFramesInFlight(n int) ManagerBuilderOption {
	return func(m *managerImpl) {
		m.framesInFlight = n
	}
}

// WithFenceTimeout bounds every fence wait. Zero, the default, waits forever.
//
// Parameters:
//   - timeout: the maximum time BeginFrame and Shutdown wait on one fence
//
// Returns:
//   - ManagerBuilderOption: a function that applies the option to a manager
func WithFenceTimeout(timeout time.Duration) ManagerBuilderOption {
	return func(m *managerImpl) {
		m.fenceTimeout = timeout
	}
}
