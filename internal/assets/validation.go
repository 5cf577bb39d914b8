package assets

import (
	"fmt"
	"strings"
)

// ValidateAssetName checks that a name is safe to use as a file name stem:
// non-empty, without path separators or dots.
func ValidateAssetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	}
	if strings.ContainsAny(name, "/\\.") {
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}
