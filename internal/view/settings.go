package view

import "context"

type settingsKey string

// displayModeKey is the key of the forum display mode in the request context.
const displayModeKey settingsKey = "displayMode"

// WithDisplayMode stores the forum display mode of the request.
func WithDisplayMode(ctx context.Context, mode int) context.Context {
	return context.WithValue(ctx, displayModeKey, mode)
}

// DisplayMode returns the forum display mode stored in the request context.
func DisplayMode(ctx context.Context) (int, bool) {
	mode, ok := ctx.Value(displayModeKey).(int)
	return mode, ok
}
