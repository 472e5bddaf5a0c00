package spritesheet

// LoaderBuilderOption is a functional option for configuring a Loader during construction.
type LoaderBuilderOption func(*loader)

// WithAllocator sets the allocator used to create the frame texture array.
//
// Parameters:
//   - allocator: the texture array allocator, usually the renderer
//
// Returns:
//   - LoaderBuilderOption: a function that applies the allocator option to a loader
func WithAllocator(allocator Allocator) LoaderBuilderOption {
	return func(l *loader) {
		l.allocator = allocator
	}
}

// WithFlipWorkers sets how many workers flip the decoded image. Defaults to the number of CPUs.
//
// Parameters:
//   - workers: the maximum number of flip workers
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker count option to a loader
func WithFlipWorkers(workers int) LoaderBuilderOption {
	return func(l *loader) {
		l.flipWorkers = workers
	}
}

// WithBaseDir sets the directory relative sheet paths are resolved against.
//
// Parameters:
//   - dir: the base directory
//
// Returns:
//   - LoaderBuilderOption: a function that applies the base directory option to a loader
func WithBaseDir(dir string) LoaderBuilderOption {
	return func(l *loader) {
		l.baseDir = dir
	}
}
