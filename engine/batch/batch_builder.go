package batch

// BuilderOption is a functional option for configuring a batch Builder.
type BuilderOption func(*builderImpl)

// WithWorkers sets the number of pool workers that rebuild batches in parallel.
//
// Parameters:
//   - n: the worker count; values below 1 mean 1
//
// Returns:
//   - BuilderOption: a function that applies the worker count
func WithWorkers(n int) BuilderOption {
	return func(b *builderImpl) {
		b.workers = max(n, 1)
	}
}
