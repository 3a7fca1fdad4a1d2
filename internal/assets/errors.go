package assets

import (
	"errors"
	"fmt"
)

// AssetLoadError reports an external image that could not be fetched or
// decoded. Element names the scene element that needed it ("avatar",
// "frame", "stickers[2]").
type AssetLoadError struct {
	Element string
	URL     string
	Err     error
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("asset %s (%s): %v", e.Element, e.URL, e.Err)
}

func (e *AssetLoadError) Unwrap() error {
	return e.Err
}

// ErrTooLarge is returned when an asset exceeds the configured byte limit.
var ErrTooLarge = errors.New("asset exceeds size limit")

// ErrNotAllowed is returned for URLs whose scheme or host the loader refuses.
var ErrNotAllowed = errors.New("asset url not allowed")

// permanentError marks failures that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func isPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
