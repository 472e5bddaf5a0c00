package window

// WindowBuilderOption is a functional option for configuring an engineWindow.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title displayed in the title bar.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the initial window size. Non-positive values keep the default.
//
// Parameters:
//   - width: initial width in pixels
//   - height: initial height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		if width > 0 {
			w.width = width
		}
		if height > 0 {
			w.height = height
		}
	}
}

// WithQuitKeys replaces the keys that close the window. Defaults to Escape.
//
// Parameters:
//   - keys: virtual key codes, see the common package constants
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithQuitKeys(keys ...uint32) WindowBuilderOption {
	return func(w *engineWindow) {
		w.quitKeys = append([]uint32(nil), keys...)
	}
}
