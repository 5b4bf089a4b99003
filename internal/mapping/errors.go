package mapping

import (
	"errors"

	"photomatch/internal/xlsx"
)

var (
	// ErrCorruptPackage indicates the uploaded bytes are not a readable workbook.
	ErrCorruptPackage = xlsx.ErrCorruptPackage
	// ErrMissingWorksheet indicates the workbook holds no worksheet part.
	ErrMissingWorksheet = xlsx.ErrMissingWorksheet
	// ErrEmptyMapping indicates the workbook parsed but yielded no code pairs.
	ErrEmptyMapping = errors.New("no mapping pairs in spreadsheet")
	// ErrRemoteFetch indicates the configured workbook could not be downloaded.
	ErrRemoteFetch = errors.New("remote workbook fetch failed")
	// ErrNoRemoteConfigured indicates refresh was requested without a remote URL.
	ErrNoRemoteConfigured = errors.New("no remote workbook configured")
)
