package hwmon

import "errors"

// ErrNoCoretemp indicates that none of the candidate coretemp locations
// could be opened.
var ErrNoCoretemp = errors.New("hwmon: no coretemp directory accessible")
