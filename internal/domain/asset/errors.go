package asset

import "errors"

var (
	// ErrAssetNotFound indicates no asset is stored under the requested name.
	ErrAssetNotFound = errors.New("asset not found")
	// ErrNoFiles indicates an upload request carried no usable files.
	ErrNoFiles = errors.New("no files uploaded")
)
