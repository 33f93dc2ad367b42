package topology

import "errors"

// ErrBadRange indicates a malformed CPU range or sibling list in sysfs.
var ErrBadRange = errors.New("topology: malformed cpu list")
