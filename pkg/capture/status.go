package capture

import (
	"errors"

	ferrors "github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/internal/errors"
)

// Coded maps an acquisition error to its registered error so the caller can
// show a status line and keep going without a camera.
func Coded(err error) *ferrors.Error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return ferrors.New("F001").Wrap(err)
	case errors.Is(err, ErrDeviceNotFound):
		return ferrors.New("F002").Wrap(err)
	case errors.Is(err, ErrDeviceBusy):
		return ferrors.New("F003").Wrap(err)
	case errors.Is(err, ErrDeviceNotReady):
		return ferrors.New("F004").Wrap(err)
	}
	return ferrors.FromError(err, "F004")
}
